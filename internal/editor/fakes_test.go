//go:build unit

package editor

import (
	"context"
	"strings"
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock. Timers due during Advance run
// synchronously on the caller's goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

var _ Clock = (*fakeClock)(nil)

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type snapshotCall struct {
	id   int64
	snap Snapshot
}

// fakeGateway is an in-memory Gateway.
type fakeGateway struct {
	mu         sync.Mutex
	nextID     int64
	docs       map[int64]Document
	points     map[int64][]string
	versions   map[int64][]Version
	snapshots  []snapshotCall
	authors    []Author
	categories []Category
	upserts    int

	upsertErr   error
	snapshotErr error
	fetchErr    error
	onUpsert    func()

	// pointsErr and versionErr fail the next call only.
	pointsErr  error
	versionErr error
}

var _ Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:     100,
		docs:       make(map[int64]Document),
		points:     make(map[int64][]string),
		versions:   make(map[int64][]Version),
		authors:    []Author{{ID: 3, Name: "Ana"}, {ID: 4, Name: "Ben"}},
		categories: []Category{{ID: 1, Title: "Visas", Slug: "visas"}},
	}
}

func (g *fakeGateway) FetchDocument(ctx context.Context, id int64) (*Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	doc, ok := g.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc.SummaryPoints = append([]string(nil), g.points[id]...)
	return &doc, nil
}

func (g *fakeGateway) UpsertDocument(ctx context.Context, doc *Document) (int64, error) {
	g.mu.Lock()
	hook := g.onUpsert
	g.mu.Unlock()
	if hook != nil {
		hook()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.upsertErr != nil {
		return 0, g.upsertErr
	}
	g.upserts++
	id := doc.ID
	if id == 0 {
		g.nextID++
		id = g.nextID
	}
	stored := *doc
	stored.ID = id
	g.docs[id] = stored
	return id, nil
}

func (g *fakeGateway) ReplaceSummaryPoints(ctx context.Context, id int64, points []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.pointsErr; err != nil {
		g.pointsErr = nil
		return err
	}
	g.points[id] = append([]string(nil), points...)
	return nil
}

func (g *fakeGateway) AppendVersion(ctx context.Context, id int64, v Version) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.versionErr; err != nil {
		g.versionErr = nil
		return err
	}
	g.versions[id] = append(g.versions[id], v)
	return nil
}

func (g *fakeGateway) WriteAutosaveSnapshot(ctx context.Context, id int64, s Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.snapshotErr != nil {
		return g.snapshotErr
	}
	g.snapshots = append(g.snapshots, snapshotCall{id: id, snap: s})
	return nil
}

func (g *fakeGateway) ListTaxonomy(ctx context.Context) ([]Category, error) {
	return g.categories, nil
}

func (g *fakeGateway) ListAuthors(ctx context.Context) ([]Author, error) {
	return g.authors, nil
}

func (g *fakeGateway) snapshotCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.snapshots)
}

// longBody returns markup with an H2 heading followed by n words of text.
func longBody(n int) string {
	return "<h2>X</h2><p>" + strings.TrimSpace(strings.Repeat("word ", n)) + "</p>"
}
