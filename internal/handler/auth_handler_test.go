//go:build unit

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"nomad-cms/internal/session"
	"testing"
)

// mockSessionManager is a mock implementation of the session.Manager interface.
type mockSessionManager struct {
	destroyCalled bool
	subject       string
	putKey        string
	putValue      interface{}
}

// Ensure mockSessionManager implements the session.Manager interface.
var _ session.Manager = (*mockSessionManager)(nil)

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.putKey = key
	m.putValue = val
}
func (m *mockSessionManager) GetString(ctx context.Context, key string) string { return m.subject }
func (m *mockSessionManager) PopString(ctx context.Context, key string) string { return "" }
func (m *mockSessionManager) RenewToken(ctx context.Context) error             { return nil }
func (m *mockSessionManager) Remove(ctx context.Context, key string)           {}
func (m *mockSessionManager) Destroy(ctx context.Context) error {
	m.destroyCalled = true
	return nil
}

func TestLogoutHandler(t *testing.T) {
	mockSession := &mockSessionManager{}
	// The authenticator is not used by the logout handler.
	authHandler := NewAuthHandler(nil, mockSession, nil)

	req := httptest.NewRequest("GET", "/auth/logout", nil)
	rr := httptest.NewRecorder()

	authHandler.handleLogout(rr, req)

	if !mockSession.destroyCalled {
		t.Error("expected session.Destroy to be called, but it wasn't")
	}

	if rr.Code != http.StatusFound {
		t.Errorf("want status code %d; got %d", http.StatusFound, rr.Code)
	}

	location, err := rr.Result().Location()
	if err != nil {
		t.Fatalf("could not get redirect location: %v", err)
	}
	if location.Path != "/" {
		t.Errorf("want redirect to '/'; got '%s'", location.Path)
	}
}

func TestCallbackHandler_StateChecks(t *testing.T) {
	authHandler := NewAuthHandler(nil, &mockSessionManager{}, nil)

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/auth/callback?state=abc&code=x", nil)
		rr := httptest.NewRecorder()
		authHandler.handleCallback(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("want status code %d; got %d", http.StatusBadRequest, rr.Code)
		}
	})

	t.Run("mismatched state", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/auth/callback?state=abc&code=x", nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "def"})
		rr := httptest.NewRecorder()
		authHandler.handleCallback(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("want status code %d; got %d", http.StatusBadRequest, rr.Code)
		}
	})
}

func TestRandString(t *testing.T) {
	a, err := randString(16)
	if err != nil {
		t.Fatalf("randString failed: %v", err)
	}
	b, _ := randString(16)
	if a == b || len(a) != 22 {
		t.Errorf("expected two distinct 22-char strings, got %q and %q", a, b)
	}
}
