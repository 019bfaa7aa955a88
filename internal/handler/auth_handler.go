package handler

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"nomad-cms/internal/auth"
	"nomad-cms/internal/logger"
	"nomad-cms/internal/middleware"
	"nomad-cms/internal/session"
	"time"
)

const stateCookie = "oauth_state"

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	auth    *auth.Authenticator
	session session.Manager
	log     logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a *auth.Authenticator, sm session.Manager, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{auth: a, session: sm, log: log}
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback is the redirect URL for the OIDC provider. On success the
// user's identity is stored in the session and the user lands on the
// article editor.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		http.Error(w, "state cookie not found", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	claims, err := h.auth.VerifyCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error(err, "OIDC login failed")
		http.Error(w, "Login failed", http.StatusUnauthorized)
		return
	}

	// A fresh token on privilege change prevents session fixation.
	if err := h.session.RenewToken(r.Context()); err != nil {
		h.log.Error(err, "Failed to renew session token")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.session.Put(r.Context(), middleware.SubjectKey, claims.Identity())
	h.log.With(map[string]interface{}{"subject": claims.Identity()}).Info("User logged in")

	http.Redirect(w, r, "/admin/articles/new", http.StatusFound)
}

// handleLogout ends the admin session.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Destroy(r.Context()); err != nil {
		h.log.Error(err, "Failed to destroy session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
