package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"nomad-cms/internal/auth"
	"nomad-cms/internal/cache"
	"nomad-cms/internal/config"
	"nomad-cms/internal/data"
	"nomad-cms/internal/handler"
	"nomad-cms/internal/logger"
	"nomad-cms/internal/middleware"
	"nomad-cms/internal/service"
	"nomad-cms/internal/view"
	"nomad-cms/web"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB.DSN, cfg.DB.Migrations); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	sessionManager.Store = mysqlstore.New(db.DB)
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	authCtx, cancelAuth := context.WithTimeout(context.Background(), 30*time.Second)
	authenticator, err := auth.NewAuthenticator(authCtx, &cfg.OIDC)
	cancelAuth()
	if err != nil {
		log.Fatal(err, "Failed to initialize authenticator")
	}
	enforcer, err := auth.NewEnforcer("mysql", cfg.DB.DSN, cfg.Auth.ModelPath)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, cfg.Auth.Admins, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- View Template Initialization ---
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	lookupCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer lookupCache.Close()

	// --- Dependency Injection and Handler Initialization ---
	articleRepository := data.NewArticleRepository(db)
	categoryRepository := data.NewCategoryRepository(db)
	authorRepository := data.NewAuthorRepository(db)
	gateway := service.NewArticleGateway(articleRepository, categoryRepository, authorRepository, lookupCache, log)
	editorService := service.NewEditorService(gateway, cfg.Editor, log)

	editorHandler := handler.NewEditorHandler(editorService, viewService, log)
	authHandler := handler.NewAuthHandler(authenticator, sessionManager, log)

	mw := handler.Middlewares{
		Authz:     middleware.Authorizer(enforcer, sessionManager),
		Error:     middleware.Error(log, viewService),
		JSONError: middleware.JSONError(log),
		Session:   sessionManager,
	}
	router := handler.NewRouter(editorHandler, authHandler, mw, web.StaticFS)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	// Pending autosaves are dropped; the last explicit save stays authoritative.
	editorService.CloseAll()
	log.Info("Server exiting")
}
