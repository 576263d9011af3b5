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
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/promptdeck/internal/api"
	"github.com/starford/promptdeck/internal/appstate"
	"github.com/starford/promptdeck/internal/index"
	"github.com/starford/promptdeck/internal/mcpserver"
	"github.com/starford/promptdeck/internal/metrics"
	"github.com/starford/promptdeck/internal/promptservice"
	"github.com/starford/promptdeck/internal/promptstore"
	"github.com/starford/promptdeck/internal/settings"
	"github.com/starford/promptdeck/internal/sse"
	"github.com/starford/promptdeck/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		logOutput: os.Stdout,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Initialize structured JSON logger.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openService lays out the data root, restores the hotkey from the saved
// settings and wires the prompt service. The index is reconciled once so
// that startup fails on an unreadable library.
func (a *application) openService(logger *slog.Logger, opts ...promptservice.Option) (*promptservice.Service, storage.Paths, index.Report, error) {
	var report index.Report
	paths, err := storage.NewPaths(a.config.Storage.Root)
	if err != nil {
		return nil, paths, report, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, paths, report, err
	}

	s, err := settings.Load(paths, logger)
	if err != nil {
		return nil, paths, report, fmt.Errorf("load settings: %w", err)
	}

	svc := promptservice.New(
		index.NewStore(paths, logger),
		promptstore.New(paths, logger),
		appstate.New(s.General.Hotkey),
		logger,
		opts...,
	)

	report, err = svc.Reindex()
	if err != nil {
		return nil, paths, report, fmt.Errorf("load index: %w", err)
	}
	logger.Info("Index loaded",
		slog.Int("added", report.Added),
		slog.Int("removed", report.Removed),
		slog.Int("refreshed", report.Refreshed))

	if a.config.Seed.Enabled {
		seeded, err := svc.Seed()
		if err != nil {
			logger.Warn("seeding failed", slog.String("error", err.Error()))
		} else if seeded {
			logger.Info("Sample prompts installed")
		}
	}
	return svc, paths, report, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_root", cfg.Storage.Root),
		slog.Bool("watcher", cfg.Watcher.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.IndexThrottle, sse.WithKeepAlive(cfg.Events.KeepAlive))
	defer broker.Close()

	svcOpts := []promptservice.Option{promptservice.WithNotifier(broker)}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		svcOpts = append(svcOpts, promptservice.WithMetrics(m))
	}

	svc, paths, _, err := app.openService(logger, svcOpts...)
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(paths.PromptsDir); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if m != nil {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	var handler http.Handler = r
	if len(cfg.App.HTTP.CORSOrigins) > 0 {
		// Outermost so pre-flight requests never reach auth.
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.App.HTTP.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", "Last-Event-ID"},
			ExposedHeaders: []string{"ETag"},
		}).Handler(r)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// SSE streams only end when their channel closes.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher. Reconciliation goes through the service so it is
	// serialised with API writes and reaches SSE clients via the notifier.
	if cfg.Watcher.Enabled {
		g.Go(func() error {
			err := index.Watch(gCtx, paths.PromptsDir, cfg.Watcher.Debounce, logger, svc.Reindex,
				func(report index.Report) {
					logger.Info("watcher: index reconciled",
						slog.Int("added", report.Added),
						slog.Int("removed", report.Removed),
						slog.Int("refreshed", report.Refreshed))
				})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
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

// errShutdown cancels the group context so the watcher stops with the
// server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// another output was set.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	svc, _, _, err := app.openService(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting", slog.String("storage_root", app.config.Storage.Root))
	if err := mcpserver.New(svc, app.version).ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// Reindex reconciles the index against the prompts tree once and reports
// what changed.
func Reindex(_ context.Context, opts ...Option) (index.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return index.Report{}, err
	}
	logger := app.newLogger()

	_, _, report, err := app.openService(logger)
	return report, err
}
