package editor

import (
	"context"
	"fmt"
	"nomad-cms/internal/logger"
	"strings"
	"sync"
	"time"
)

// Options configures a Session.
type Options struct {
	AutosaveDelay  time.Duration
	GatewayTimeout time.Duration
	Clock          Clock
	Logger         logger.Logger
	Sanitizer      *Sanitizer
	// User is recorded as the creator of version history entries.
	User string
}

func (o Options) withDefaults() Options {
	if o.AutosaveDelay <= 0 {
		o.AutosaveDelay = DefaultAutosaveDelay
	}
	if o.GatewayTimeout <= 0 {
		o.GatewayTimeout = DefaultGatewayTimeout
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Sanitizer == nil {
		o.Sanitizer = NewSanitizer()
	}
	return o
}

// Session is one open editor: it owns the article fields, the body editor,
// the last validation result and the autosave scheduler. All writes to the
// gateway made by a session are serialized.
type Session struct {
	gw        Gateway
	body      *Body
	sanitizer *Sanitizer
	validator *Validator
	autosaver *Autosaver
	clock     Clock
	timeout   time.Duration
	log       logger.Logger
	user      string

	mu         sync.Mutex
	doc        Document
	slugManual bool
	issues     []Issue
	lastSaved  time.Time
	closed     bool
	recovery   *Snapshot

	// write is a one-slot semaphore guarding the persistence channel.
	write       chan struct{}
	unsubscribe func()
}

// New opens a session for a brand-new article. The first author returned
// by the gateway becomes the default byline.
func New(ctx context.Context, gw Gateway, opts Options) *Session {
	s := newSession(gw, opts)
	s.doc = Document{
		Icon:          DefaultIcon,
		Status:        StatusDraft,
		SummaryPoints: padPoints(nil),
	}

	lctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	authors, err := gw.ListAuthors(lctx)
	if err != nil {
		s.log.Error(err, "Failed to list authors for new article")
	} else if len(authors) > 0 {
		id := authors[0].ID
		s.doc.AuthorID = &id
	}
	return s
}

// Open hydrates a session from the stored article id. A missing article or
// a fetch failure is returned as is; the editor cannot continue without it.
func Open(ctx context.Context, gw Gateway, id int64, opts Options) (*Session, error) {
	s := newSession(gw, opts)

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	doc, err := gw.FetchDocument(fctx, id)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}

	s.body.SetContent(doc.Body)
	doc.Body = ""
	points := CompactPoints(doc.SummaryPoints)
	if len(points) > MaxSummaryPoints {
		s.log.With(map[string]interface{}{"article_id": id, "stored": len(points)}).
			Warn(fmt.Sprintf("Article has more than %d summary points; the rest are dropped on the next save", MaxSummaryPoints))
	}
	doc.SummaryPoints = padPoints(points)
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	s.recovery = doc.Recovery
	doc.Recovery = nil
	s.doc = *doc
	return s, nil
}

func newSession(gw Gateway, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		gw:        gw,
		body:      NewBody(),
		sanitizer: opts.Sanitizer,
		validator: NewValidator(opts.Sanitizer),
		clock:     opts.Clock,
		timeout:   opts.GatewayTimeout,
		log:       opts.Logger,
		user:      opts.User,
		issues:    []Issue{},
		write:     make(chan struct{}, 1),
	}
	s.autosaver = NewAutosaver(opts.AutosaveDelay, opts.GatewayTimeout, opts.Clock, opts.Logger, s.autosave)
	s.unsubscribe = s.body.Subscribe(s.contentChanged)
	return s
}

// Body returns the session's rich-text editor.
func (s *Session) Body() *Body { return s.body }

// AutosaveState reports the autosave scheduler state.
func (s *Session) AutosaveState() AutosaveState { return s.autosaver.State() }

// ID returns the article ID, zero until the first save.
func (s *Session) ID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID
}

// LastSaved returns the time of the last successful save or autosave.
func (s *Session) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// contentChanged feeds body edits to the autosaver. Articles without an
// identity have nowhere to keep a snapshot, so nothing is scheduled.
func (s *Session) contentChanged() {
	s.mu.Lock()
	active := s.doc.ID != 0 && !s.closed
	s.mu.Unlock()
	if active {
		s.autosaver.Notify()
	}
}

// Document returns a copy of the current article including serialized body.
func (s *Session) Document() Document {
	body := s.body.Content()
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Body = body
	doc.SummaryPoints = append([]string(nil), s.doc.SummaryPoints...)
	return doc
}

// SetTitle updates the title. Until the article has been saved the slug
// follows the title unless it was edited by hand; the meta title is filled
// from the title while it is empty.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Title = title
	if s.doc.ID == 0 && !s.slugManual && strings.TrimSpace(title) != "" {
		s.doc.Slug = Slugify(title)
	}
	if s.doc.SEO.MetaTitle == "" && title != "" {
		s.doc.SEO.MetaTitle = truncateRunes(title, maxMetaTitleLen)
	}
}

// SetSlug overrides the slug. The value is normalized to URL-safe form; an
// empty value hands control of the slug back to the title for new articles.
func (s *Session) SetSlug(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug = Slugify(slug)
	if slug == "" {
		s.slugManual = false
		if s.doc.ID == 0 {
			s.doc.Slug = Slugify(s.doc.Title)
		}
		return
	}
	s.slugManual = true
	s.doc.Slug = slug
}

// SetIcon sets the decorative glyph.
func (s *Session) SetIcon(icon string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Icon = icon
}

// SetCategory sets or clears the category reference.
func (s *Session) SetCategory(id *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.CategoryID = copyRef(id)
}

// SetAuthor sets or clears the author reference.
func (s *Session) SetAuthor(id *int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.AuthorID = copyRef(id)
}

// SetSummaryPoint sets the point in slot i.
func (s *Session) SetSummaryPoint(i int, text string) error {
	if i < 0 || i >= MaxSummaryPoints {
		return ErrPointIndex
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SummaryPoints[i] = text
	return nil
}

// SetSummaryPoints replaces all slots. Extra points are an error.
func (s *Session) SetSummaryPoints(points []string) error {
	if len(points) > MaxSummaryPoints {
		return ErrPointIndex
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SummaryPoints = padPoints(points)
	return nil
}

// SetSEO replaces the SEO fields.
func (s *Session) SetSEO(seo SEO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SEO = seo
}

// ImportMarkdown replaces the body with converted Markdown as a user edit.
func (s *Session) ImportMarkdown(src string) error {
	markup, err := MarkdownToHTML(src)
	if err != nil {
		return err
	}
	s.body.Replace(markup)
	return nil
}

// Validate runs the validator on the current state and records the result.
func (s *Session) Validate() []Issue {
	issues := s.validator.Validate(s.Document())
	s.mu.Lock()
	s.issues = issues
	s.mu.Unlock()
	return append([]Issue{}, issues...)
}

// Issues returns the result of the last validation pass.
func (s *Session) Issues() []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Issue{}, s.issues...)
}

// Recovery returns the autosave snapshot found on open that is newer than
// the stored body, or nil.
func (s *Session) Recovery() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recovery == nil {
		return nil
	}
	snap := *s.recovery
	return &snap
}

// RestoreAutosave replaces the body with the recovery snapshot as a user
// edit. The snapshot is consumed.
func (s *Session) RestoreAutosave() error {
	s.mu.Lock()
	snap := s.recovery
	s.recovery = nil
	s.mu.Unlock()
	if snap == nil {
		return ErrNoSnapshot
	}
	s.body.Replace(snap.Body)
	return nil
}

// DiscardAutosave forgets the recovery snapshot and keeps the stored body.
func (s *Session) DiscardAutosave() {
	s.mu.Lock()
	s.recovery = nil
	s.mu.Unlock()
}

// Save persists the article with the target status. Publishing is refused
// with a *ValidationError when any issue remains, leaving storage and
// status untouched. Other statuses save regardless of issues.
func (s *Session) Save(ctx context.Context, status Status) (Document, error) {
	if !status.Valid() {
		return Document{}, ErrInvalidStatus
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Document{}, ErrClosed
	}

	select {
	case s.write <- struct{}{}:
	case <-ctx.Done():
		return Document{}, ctx.Err()
	}
	defer func() { <-s.write }()

	doc := s.Document()
	issues := s.validator.Validate(doc)
	s.mu.Lock()
	s.issues = issues
	s.mu.Unlock()
	if status == StatusPublished && len(issues) > 0 {
		return Document{}, &ValidationError{Issues: append([]Issue(nil), issues...)}
	}

	doc.Body = s.sanitizer.Sanitize(doc.Body)
	doc.ReadTime = ReadingTime(doc.Body)
	doc.Excerpt = Excerpt(doc.Body, ExcerptLength)
	doc.Status = status

	now := s.clock.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if status == StatusPublished && doc.PublishedAt == nil {
		doc.PublishedAt = &now
	}
	// Slugs are unique in storage, so an untitled draft still needs one.
	if doc.Slug == "" {
		doc.Slug = Slugify(doc.Title)
		if doc.Slug == "" {
			doc.Slug = fmt.Sprintf("untitled-%d", now.UnixNano())
		}
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.gw.UpsertDocument(sctx, &doc)
	if err != nil {
		return Document{}, fmt.Errorf("save article: %w", err)
	}
	doc.ID = id

	// The row is stored from here on. Mirror it even if a later step
	// fails so a retry updates it and keeps its first publish time.
	s.mu.Lock()
	s.doc.ID = id
	s.doc.CreatedAt = doc.CreatedAt
	s.doc.Slug = doc.Slug
	s.doc.Status = doc.Status
	s.doc.UpdatedAt = doc.UpdatedAt
	s.doc.PublishedAt = doc.PublishedAt
	s.doc.ReadTime = doc.ReadTime
	s.doc.Excerpt = doc.Excerpt
	s.mu.Unlock()

	if err := s.gw.ReplaceSummaryPoints(sctx, id, CompactPoints(doc.SummaryPoints)); err != nil {
		return Document{}, fmt.Errorf("save summary points: %w", err)
	}
	version := Version{Title: doc.Title, Body: doc.Body, AuthorID: doc.AuthorID, CreatedBy: s.user}
	if err := s.gw.AppendVersion(sctx, id, version); err != nil {
		return Document{}, fmt.Errorf("append version: %w", err)
	}

	s.mu.Lock()
	s.lastSaved = now
	s.recovery = nil
	s.mu.Unlock()

	s.log.With(map[string]interface{}{"article_id": id}).Info(fmt.Sprintf("Article saved as %s", status))
	return doc, nil
}

// autosave is the Autosaver target: it writes a sanitized snapshot of the
// body to the recovery side channel without touching the article row.
func (s *Session) autosave(ctx context.Context) error {
	select {
	case s.write <- struct{}{}:
	default:
		return ErrBusy
	}
	defer func() { <-s.write }()

	s.mu.Lock()
	id := s.doc.ID
	s.mu.Unlock()
	if id == 0 {
		return nil
	}

	snap := Snapshot{Body: s.sanitizer.Sanitize(s.body.Content()), SavedAt: s.clock.Now()}
	if err := s.gw.WriteAutosaveSnapshot(ctx, id, snap); err != nil {
		return fmt.Errorf("write autosave snapshot: %w", err)
	}

	s.mu.Lock()
	if snap.SavedAt.After(s.lastSaved) {
		s.lastSaved = snap.SavedAt
	}
	s.mu.Unlock()
	s.log.With(map[string]interface{}{"article_id": id}).Debug("Autosave snapshot written")
	return nil
}

// Close tears the session down: pending autosaves are cancelled and the
// session stops reacting to edits. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.autosaver.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func copyRef(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
