package handler

import (
	"io/fs"
	"net/http"
	appmw "nomad-cms/internal/middleware"
	"nomad-cms/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middlewares groups the cross-cutting handlers the router is wired with.
type Middlewares struct {
	Authz     func(http.Handler) http.Handler
	Error     func(appmw.AppHandler) http.Handler
	JSONError func(appmw.AppHandler) http.Handler
	Session   session.Manager
}

// NewRouter creates and configures a new chi router.
func NewRouter(editorHandler *EditorHandler, authHandler *AuthHandler, mw Middlewares, static fs.FS) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.Session.LoadAndSave)
		r.Use(mw.Authz)

		html, api := mw.Error, mw.JSONError

		r.Method(http.MethodGet, "/", html(editorHandler.home))

		r.Get("/auth/login", authHandler.handleLogin)
		r.Get("/auth/callback", authHandler.handleCallback)
		r.Get("/auth/logout", authHandler.handleLogout)

		r.Route("/admin", func(r chi.Router) {
			r.Method(http.MethodGet, "/articles/new", html(editorHandler.newArticlePage))
			r.Method(http.MethodGet, "/articles/{id}/edit", html(editorHandler.editArticlePage))
			r.Method(http.MethodGet, "/articles/{id}/versions", api(editorHandler.versions))

			r.Method(http.MethodGet, "/taxonomy", api(editorHandler.taxonomy))
			r.Method(http.MethodGet, "/authors", api(editorHandler.authors))

			r.Method(http.MethodPost, "/editor", api(editorHandler.openSession))
			r.Route("/editor/{sid}", func(r chi.Router) {
				r.Method(http.MethodGet, "/", api(editorHandler.getSession))
				r.Method(http.MethodDelete, "/", api(editorHandler.closeSession))
				r.Method(http.MethodPatch, "/fields", api(editorHandler.updateFields))
				r.Method(http.MethodPost, "/commands", api(editorHandler.command))
				r.Method(http.MethodGet, "/validate", api(editorHandler.validate))
				r.Method(http.MethodPost, "/save", api(editorHandler.save))
			})
		})
	})

	return r
}
