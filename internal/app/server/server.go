package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"assessments/internal/domain/assessment"
	"assessments/internal/domain/audit"
	"assessments/internal/domain/auth"
	"assessments/internal/platform/config"
	"assessments/internal/platform/db"
	"assessments/internal/platform/metrics"
	"assessments/internal/transport/http/api"
	assessmenthandler "assessments/internal/transport/http/handlers/assessment"
	audithandler "assessments/internal/transport/http/handlers/audit"
	"assessments/internal/transport/http/middleware"
)

type App struct {
	Config    config.Config
	DB        *pgxpool.Pool
	Router    http.Handler
	Processes *assessment.Service
	Metrics   *metrics.Collector
}

// New wires the store selected by cfg.StoreDriver into the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, Metrics: metrics.New()}

	var store assessment.StoreAPI
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = assessment.NewMemoryStore()
	default:
		if cfg.RunMigrations {
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		app.DB = pool
		store = assessment.NewStore(pool)
	}

	app.Processes = assessment.NewService(store, nil)

	handler := assessmenthandler.NewHandler(app.Processes, auth.StaticPermissions{}, nil, app.Metrics)
	var auditHandler *audithandler.Handler
	if app.DB != nil {
		auditSvc := audit.New(app.DB)
		handler.Audit = auditSvc
		auditHandler = audithandler.NewHandler(auditSvc, auth.StaticPermissions{})
	}

	app.Router = app.routes(handler, auditHandler)
	return app, nil
}

func (a *App) routes(handler *assessmenthandler.Handler, auditHandler *audithandler.Handler) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.Logger(slog.Default(), a.Metrics))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Processes.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		handler.RegisterRoutes(r)
		// Audit events live in Postgres only.
		if auditHandler != nil {
			auditHandler.RegisterRoutes(r)
		}
	})

	return router
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// cfg.ShutdownTimeout.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("assessment server listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
