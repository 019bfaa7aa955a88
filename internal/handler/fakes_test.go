//go:build unit || integration

package handler

import (
	"context"
	"net/http"
	"nomad-cms/internal/config"
	"nomad-cms/internal/editor"
	"nomad-cms/internal/logger"
	"nomad-cms/internal/middleware"
	"nomad-cms/internal/service"
	"nomad-cms/internal/view"
	"nomad-cms/web"
	"sync"
	"testing"
	"time"
)

// fakeGateway keeps articles in memory.
type fakeGateway struct {
	mu        sync.Mutex
	nextID    int64
	docs      map[int64]editor.Document
	slugs     map[string]int64
	versions  map[int64][]editor.Version
	upsertErr error
}

var _ editor.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:   1,
		docs:     make(map[int64]editor.Document),
		slugs:    make(map[string]int64),
		versions: make(map[int64][]editor.Version),
	}
}

func (g *fakeGateway) FetchDocument(ctx context.Context, id int64) (*editor.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.docs[id]
	if !ok {
		return nil, editor.ErrNotFound
	}
	return &doc, nil
}

func (g *fakeGateway) UpsertDocument(ctx context.Context, doc *editor.Document) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.upsertErr != nil {
		return 0, g.upsertErr
	}
	if owner, ok := g.slugs[doc.Slug]; ok && owner != doc.ID {
		return 0, editor.ErrSlugTaken
	}
	id := doc.ID
	if id == 0 {
		id = g.nextID
		g.nextID++
	}
	stored := *doc
	stored.ID = id
	g.docs[id] = stored
	g.slugs[doc.Slug] = id
	return id, nil
}

func (g *fakeGateway) ReplaceSummaryPoints(ctx context.Context, id int64, points []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc := g.docs[id]
	doc.SummaryPoints = append([]string(nil), points...)
	g.docs[id] = doc
	return nil
}

func (g *fakeGateway) AppendVersion(ctx context.Context, id int64, v editor.Version) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.versions[id] = append(g.versions[id], v)
	return nil
}

func (g *fakeGateway) WriteAutosaveSnapshot(ctx context.Context, id int64, s editor.Snapshot) error {
	return nil
}

func (g *fakeGateway) ListTaxonomy(ctx context.Context) ([]editor.Category, error) {
	return []editor.Category{{ID: 1, Title: "Visas", Slug: "visas"}, {ID: 2, Title: "Coworking", Slug: "coworking"}}, nil
}

func (g *fakeGateway) ListAuthors(ctx context.Context) ([]editor.Author, error) {
	return []editor.Author{{ID: 3, Name: "Ana"}}, nil
}

// allowAll stands in for the casbin middleware and logs everyone in as subject.
func allowAll(subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.SetUserInfo(r.Context(), &middleware.UserInfo{Subject: subject, Roles: []string{"editor"}})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newTestEditorHandler wires the editor handler over gw with an hour-long
// autosave delay so no timer fires during a test.
func newTestEditorHandler(t *testing.T, gw editor.Gateway) (*EditorHandler, *service.EditorService, *view.View, logger.Logger) {
	t.Helper()
	v, err := view.New(web.TemplateFS)
	if err != nil {
		t.Fatalf("Failed to parse templates: %v", err)
	}
	log := logger.Nop()
	svc := service.NewEditorService(gw, config.EditorConfig{AutosaveDelay: time.Hour, GatewayTimeout: time.Second}, log)
	t.Cleanup(svc.CloseAll)
	return NewEditorHandler(svc, v, log), svc, v, log
}
