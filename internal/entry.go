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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notestore/internal/account"
	"github.com/starford/notestore/internal/api"
	"github.com/starford/notestore/internal/sse"
	"github.com/starford/notestore/internal/storage"
)

// setup applies the options and returns the application with a logger.
func setup(w io.Writer, opts []Option) (*application, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

// activate opens the configured account's storage.
func (app *application) activate(ctx context.Context) (*account.Manager, *account.Session, error) {
	cfg := app.config

	provider, err := storage.NewFS(cfg.Storage.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	mgr := account.NewManager(provider,
		account.WithLogger(app.logger),
		account.WithStoreOptions(cfg.Storage.StoreOptions()...),
		account.WithOverrideLock(cfg.Storage.OverrideLock),
	)

	sess, err := mgr.SwitchAccount(ctx, cfg.Account.Account(), cfg.Account.StartFromScratch)
	if err != nil {
		return nil, nil, fmt.Errorf("activate account: %w", err)
	}
	return mgr, sess, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := setup(os.Stdout, opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("account", cfg.Account.Account().String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	mgr, sess, err := app.activate(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Error("close account", slog.String("error", err.Error()))
		}
	}()

	// SSE broker fed by store change events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	sess.DB.Subscribe(broker)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		sess.DB,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "notestore",
			Subsystem: "sse",
			Name:      "dropped_events_total",
			Help:      "Change events dropped because the broker was busy.",
		}, func() float64 { return float64(broker.Dropped()) }),
	)

	svc := api.NewService(sess.DB)
	apiRouter := api.NewRouter(svc, logger, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := sess.DB.NotebookCount(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
