// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lagu/internal/api"
	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/mcpserver"
	"github.com/starford/lagu/internal/sse"
	"github.com/starford/lagu/internal/storage"
	"github.com/starford/lagu/internal/study"
	"github.com/starford/lagu/internal/studyservice"
	"github.com/starford/lagu/internal/vault"
)

// errShutdown stops the run group once the server has been shut down.
var errShutdown = errors.New("shutdown")

// core holds the components shared by the HTTP and MCP front ends.
type core struct {
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	vault  *vault.Vault
}

// setup initialises logging, the vault storage and the synced index.
func setup(app *application) (*core, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("allow_bi_links", cfg.Study.AllowBiLinks),
		slog.String("default_folder", cfg.Study.DefaultFolder))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &core{logger: logger, store: store, db: db, vault: vault.New(store)}, nil
}

func (rt *core) service(cfg *Config, opts ...study.Option) *studyservice.Service {
	opts = append([]study.Option{study.WithLogger(rt.logger), study.WithRecorder(rt.db)}, opts...)
	engine := study.New(rt.vault, study.Config{AllowBiLinks: cfg.Study.AllowBiLinks}, opts...)
	return studyservice.New(rt.db, engine, cfg.Study.DefaultFolder)
}

// Run starts the HTTP server, the vault watcher and the event stream.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := setup(app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg := app.config
	logger := rt.logger

	broker := sse.NewBroker(cfg.Events.GraphThrottle, logger)
	defer broker.Close()

	svc := rt.service(cfg, study.WithNotifier(broker))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index in step with the vault and push changes to clients.
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, cfg.Vault.Path, logger, broker.PublishNoteEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams never finish on their own; Shutdown would wait for them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		if svc.Info().Active {
			if err := svc.End(shutdownCtx); err != nil {
				logger.Warn("end session on shutdown failed", slog.String("error", err.Error()))
			}
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the study tools over MCP stdio until stdin closes or a
// shutdown signal arrives.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	rt, err := setup(app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serveMCP(ctx, rt, app, os.Stdin, os.Stdout)
}

// serveMCP runs the MCP server on in/out next to the vault watcher, so notes
// created while the server is up are found by later sessions.
func serveMCP(ctx context.Context, rt *core, app *application, in io.Reader, out io.Writer) error {
	cfg := app.config
	svc := rt.service(cfg)
	srv := mcpserver.New(svc, rt.vault, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, cfg.Vault.Path, rt.logger, nil)
	})
	g.Go(func() error {
		rt.logger.Info("MCP server starting on stdio")
		if err := srv.Serve(gCtx, in, out); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	err := g.Wait()
	if svc.Info().Active {
		if endErr := svc.End(context.Background()); endErr != nil {
			rt.logger.Warn("end session on shutdown failed", slog.String("error", endErr.Error()))
		}
	}
	if err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	rt.logger.Info("MCP server stopped")
	return nil
}
