//go:build unit

package service

import (
	"context"
	"errors"
	"nomad-cms/internal/config"
	"nomad-cms/internal/data"
	"nomad-cms/internal/editor"
	"testing"
	"time"
)

func newTestEditorService(repo *mockArticleRepository) *EditorService {
	authors := &mockAuthorRepository{authors: []*data.Author{{ID: 9, Name: "Ana"}}}
	gw := NewArticleGateway(repo, &mockCategoryRepository{}, authors, nil, nil)
	return NewEditorService(gw, config.EditorConfig{AutosaveDelay: time.Hour, GatewayTimeout: time.Second}, nil)
}

func TestEditorService_OpenNew(t *testing.T) {
	svc := newTestEditorService(&mockArticleRepository{})

	token, sess, err := svc.Open(context.Background(), 0, "ana@example.com")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	doc := sess.Document()
	if doc.ID != 0 || doc.AuthorID == nil || *doc.AuthorID != 9 {
		t.Errorf("expected a new document with default author 9, got %+v", doc)
	}

	got, err := svc.Get(token)
	if err != nil || got != sess {
		t.Errorf("expected Get to return the opened session, got %v (%v)", got, err)
	}
}

func TestEditorService_OpenExisting(t *testing.T) {
	repo := &mockArticleRepository{articleToReturn: &data.Article{ID: 5, Title: "Chiang Mai", Content: "<p>hi</p>", Status: "draft"}}
	svc := newTestEditorService(repo)

	_, sess, err := svc.Open(context.Background(), 5, "ana@example.com")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if sess.ID() != 5 || sess.Document().Body != "<p>hi</p>" {
		t.Errorf("unexpected session document: %+v", sess.Document())
	}

	if _, _, err := svc.Open(context.Background(), 6, "ana@example.com"); !errors.Is(err, editor.ErrNotFound) {
		t.Errorf("expected editor.ErrNotFound for a missing article, got %v", err)
	}
}

func TestEditorService_Close(t *testing.T) {
	svc := newTestEditorService(&mockArticleRepository{})
	token, sess, err := svc.Open(context.Background(), 0, "ana@example.com")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := svc.Close(token); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := svc.Get(token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after close, got %v", err)
	}
	if err := svc.Close(token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second close, got %v", err)
	}
	if _, err := sess.Save(context.Background(), editor.StatusDraft); !errors.Is(err, editor.ErrClosed) {
		t.Errorf("expected the session itself to be closed, got %v", err)
	}
}

func TestEditorService_CloseAll(t *testing.T) {
	svc := newTestEditorService(&mockArticleRepository{})
	tokens := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		token, _, err := svc.Open(context.Background(), 0, "ana@example.com")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		tokens = append(tokens, token)
	}

	svc.CloseAll()

	for _, token := range tokens {
		if _, err := svc.Get(token); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected session %s to be gone, got %v", token, err)
		}
	}
}

func TestEditorService_IdleSessionsExpire(t *testing.T) {
	svc := newTestEditorService(&mockArticleRepository{})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	idle, idleSess, err := svc.Open(context.Background(), 0, "ana@example.com")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	active, _, err := svc.Open(context.Background(), 0, "ben@example.com")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	now = now.Add(time.Hour)
	if _, err := svc.Get(active); err != nil {
		t.Fatalf("expected the active session to be open, got %v", err)
	}

	now = now.Add(DefaultIdleTimeout - time.Minute)
	if _, err := svc.Get(active); err != nil {
		t.Errorf("expected a session used within the timeout to stay open, got %v", err)
	}
	if _, err := svc.Get(idle); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected the idle session to be expired, got %v", err)
	}
	if _, err := idleSess.Save(context.Background(), editor.StatusDraft); !errors.Is(err, editor.ErrClosed) {
		t.Errorf("expected the expired session to be closed, got %v", err)
	}
}

func TestEditorService_SaveRecordsUser(t *testing.T) {
	repo := &mockArticleRepository{}
	svc := newTestEditorService(repo)
	_, sess, err := svc.Open(context.Background(), 0, "ana@example.com")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	sess.SetTitle("Tbilisi for digital nomads")

	if _, err := sess.Save(context.Background(), editor.StatusDraft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	history, err := svc.History(context.Background(), 7)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].CreatedBy != "ana@example.com" {
		t.Errorf("expected one version created by ana@example.com, got %+v", history)
	}
}
