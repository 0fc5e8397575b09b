// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/agent"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/identify"
	"github.com/starford/raido/internal/metadata"
	"github.com/starford/raido/internal/status"
)

// Run starts the agent with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.Any("roots", cfg.Scan.Roots),
		slog.String("dest", cfg.Scan.Dest),
		slog.Int("workers", cfg.Scan.MaxWorkers),
		slog.Bool("dry_run", cfg.Scan.DryRun),
		slog.Bool("watch", cfg.Scan.Watch),
		slog.String("identify_mode", cfg.Identify.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var detector identify.Detector
	switch cfg.Identify.Mode {
	case IdentifyModeExtension:
		detector = identify.NewExtension()
	default:
		detector = identify.NewSignature()
	}

	registry := metadata.NewRegistry().
		Register("image/", metadata.Image())

	var cat catalog.Store
	if cfg.Catalog.Path != "" {
		db, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("init catalog: %w", err)
		}
		defer db.Close()
		cat = db
	}

	ag, err := agent.New(agent.Options{
		Roots:          cfg.Scan.Roots,
		Dest:           cfg.Scan.Dest,
		Rules:          cfg.RetrievalRules(),
		MaxWorkers:     cfg.Scan.MaxWorkers,
		DryRun:         cfg.Scan.DryRun,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
		IgnoreDirs:     cfg.Scan.IgnoreDirs,
	}, detector, registry, cat, logger)
	if err != nil {
		return err
	}

	if !cfg.Scan.Watch {
		auditPath, err := ag.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("audit written", slog.String("path", auditPath))
		fmt.Println(auditPath)
		return nil
	}

	return runWatch(ctx, cfg, ag, cat, logger)
}

// runWatch performs the initial sweep, then keeps the agent (and the
// optional status server) running until a shutdown signal arrives.
func runWatch(ctx context.Context, cfg *Config, ag *agent.Agent, cat catalog.Store, logger *slog.Logger) error {
	defer ag.Close()

	logger.Info("audit log open", slog.String("path", ag.AuditPath()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if err := ag.Sweep(gCtx); err != nil {
			return err
		}
		return ag.Watch(gCtx)
	})

	var httpServer *http.Server
	if cfg.Status.Port > 0 {
		httpServer = &http.Server{
			Addr:    cfg.Status.Address(),
			Handler: status.NewRouter(ag.Stats(), cat, ag.AuditPath()),
		}
		g.Go(func() error {
			logger.Info("Starting status server", slog.String("address", cfg.Status.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server error: %w", err)
			}
			return nil
		})
	}

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

		cancel()

		if httpServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	if err := ag.Close(); err != nil {
		return fmt.Errorf("close audit: %w", err)
	}
	logger.Info("audit written", slog.String("path", ag.AuditPath()))
	return nil
}
