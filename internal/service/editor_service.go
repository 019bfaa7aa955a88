package service

import (
	"context"
	"errors"
	"nomad-cms/internal/config"
	"nomad-cms/internal/data"
	"nomad-cms/internal/editor"
	"nomad-cms/internal/logger"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or closed editor sessions.
var ErrSessionNotFound = errors.New("service: editor session not found")

// DefaultIdleTimeout is how long an editor session may go unused before it
// is closed.
const DefaultIdleTimeout = 2 * time.Hour

// VersionLister is implemented by gateways that expose article history.
type VersionLister interface {
	History(ctx context.Context, articleID int64) ([]*data.ContentVersion, error)
}

// EditorServicer defines the interface for managing open editor sessions.
type EditorServicer interface {
	Open(ctx context.Context, articleID int64, user string) (string, *editor.Session, error)
	Get(token string) (*editor.Session, error)
	Close(token string) error
	Taxonomy(ctx context.Context) ([]editor.Category, error)
	Authors(ctx context.Context) ([]editor.Author, error)
	History(ctx context.Context, articleID int64) ([]*data.ContentVersion, error)
}

// EditorService keeps the editor sessions that are open in admin browsers,
// keyed by a random token. Sessions untouched for longer than the idle
// timeout are closed on the next Open or Get.
type EditorService struct {
	gw       editor.Gateway
	versions VersionLister
	cfg      config.EditorConfig
	log      logger.Logger
	opts     editor.Options
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*openSession
}

type openSession struct {
	sess    *editor.Session
	touched time.Time
}

var _ EditorServicer = (*EditorService)(nil)

// NewEditorService creates a new EditorService.
func NewEditorService(gw editor.Gateway, cfg config.EditorConfig, log logger.Logger) *EditorService {
	if log == nil {
		log = logger.Nop()
	}
	s := &EditorService{
		gw:       gw,
		cfg:      cfg,
		log:      log,
		opts:     editor.Options{AutosaveDelay: cfg.AutosaveDelay, GatewayTimeout: cfg.GatewayTimeout, Logger: log},
		now:      time.Now,
		sessions: make(map[string]*openSession),
	}
	if s.cfg.IdleTimeout <= 0 {
		s.cfg.IdleTimeout = DefaultIdleTimeout
	}
	if vl, ok := gw.(VersionLister); ok {
		s.versions = vl
	}
	return s
}

// Open starts a session for the article, or for a new article when
// articleID is zero, and returns its token.
func (s *EditorService) Open(ctx context.Context, articleID int64, user string) (string, *editor.Session, error) {
	opts := s.opts
	opts.User = user

	var (
		sess *editor.Session
		err  error
	)
	if articleID == 0 {
		sess = editor.New(ctx, s.gw, opts)
	} else {
		sess, err = editor.Open(ctx, s.gw, articleID, opts)
		if err != nil {
			return "", nil, err
		}
	}

	token := uuid.NewString()
	s.mu.Lock()
	now := s.now()
	expired := s.sweepLocked(now)
	s.sessions[token] = &openSession{sess: sess, touched: now}
	s.mu.Unlock()
	s.closeExpired(expired)

	s.log.With(map[string]interface{}{"article_id": articleID, "user": user}).Info("Editor session opened")
	return token, sess, nil
}

// Get returns the open session for token and marks it as used.
func (s *EditorService) Get(token string) (*editor.Session, error) {
	s.mu.Lock()
	now := s.now()
	expired := s.sweepLocked(now)
	entry, ok := s.sessions[token]
	if ok {
		entry.touched = now
	}
	s.mu.Unlock()
	s.closeExpired(expired)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry.sess, nil
}

// Close stops the session's autosave and forgets it.
func (s *EditorService) Close(token string) error {
	s.mu.Lock()
	entry, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	entry.sess.Close()
	return nil
}

// CloseAll closes every open session. It is used on shutdown.
func (s *EditorService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*openSession)
	s.mu.Unlock()
	for _, entry := range sessions {
		entry.sess.Close()
	}
	s.log.Info("Editor sessions closed")
}

// sweepLocked removes sessions idle since before now minus the idle
// timeout and returns them. s.mu must be held.
func (s *EditorService) sweepLocked(now time.Time) []*editor.Session {
	var expired []*editor.Session
	for token, entry := range s.sessions {
		if now.Sub(entry.touched) > s.cfg.IdleTimeout {
			delete(s.sessions, token)
			expired = append(expired, entry.sess)
		}
	}
	return expired
}

func (s *EditorService) closeExpired(expired []*editor.Session) {
	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		s.log.With(map[string]interface{}{"count": len(expired)}).Info("Idle editor sessions closed")
	}
}

// Taxonomy returns the categories an article can be filed under.
func (s *EditorService) Taxonomy(ctx context.Context) ([]editor.Category, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.gw.ListTaxonomy(ctx)
}

// Authors returns the available bylines.
func (s *EditorService) Authors(ctx context.Context) ([]editor.Author, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.gw.ListAuthors(ctx)
}

func (s *EditorService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = editor.DefaultGatewayTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// History returns the saved versions of an article, newest first. It
// returns an empty list when the gateway keeps no history.
func (s *EditorService) History(ctx context.Context, articleID int64) ([]*data.ContentVersion, error) {
	if s.versions == nil {
		return []*data.ContentVersion{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.versions.History(ctx, articleID)
}
