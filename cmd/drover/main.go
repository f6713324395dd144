package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/drover/actions"
	"github.com/use-agent/drover/api"
	"github.com/use-agent/drover/assets"
	"github.com/use-agent/drover/browser"
	"github.com/use-agent/drover/cache"
	"github.com/use-agent/drover/component"
	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/extract"
	"github.com/use-agent/drover/recorder"
	"github.com/use-agent/drover/store"
	"github.com/use-agent/drover/workflow"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("drover starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Pool.MaxSessions,
	)

	// ── 3. Open the persistent store ────────────────────────────────
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// ── 4. Start the browser pool ───────────────────────────────────
	nav := browser.NewNavigator(cfg.Nav)
	pool := browser.NewPool(cfg.Pool, cfg.Browser, nav)
	if err := pool.Start(); err != nil {
		slog.Error("failed to start browser pool", "error", err)
		os.Exit(1)
	}
	defer pool.Stop()

	// ── 5. Cache + sweeper ──────────────────────────────────────────
	responseCache := cache.New(st)
	sweeper := cache.NewSweeper(responseCache, cfg.Cache.SweepInterval, cfg.Cache.StatsInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// ── 6. Extraction pipeline ──────────────────────────────────────
	registry := extract.NewRegistry()
	coordinator := extract.NewCoordinator(pool, responseCache, registry, cfg.Cache)

	// ── 7. Actions + workflows ──────────────────────────────────────
	executor := actions.NewExecutor(cfg.Actions)
	workflows := workflow.NewStore(st)
	runner := workflow.NewRunner(workflows, pool, executor)

	// ── 8. Recorder sessions ────────────────────────────────────────
	recorders := recorder.NewManager(cfg.Recorder, pool)
	defer recorders.Shutdown()

	// ── 9. Components + asset fetcher ───────────────────────────────
	fetcher := assets.NewFetcher(cfg.Assets.Timeout, cfg.Assets.MaxBytes, cfg.Browser.DefaultProxy)
	components := component.NewStore(st, fetcher)

	// ── 10. Router + HTTP server ────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(api.Deps{
		Pool:       pool,
		Cache:      responseCache,
		Coord:      coordinator,
		Executor:   executor,
		Workflows:  workflows,
		Runner:     runner,
		Recorder:   recorders,
		Components: components,
	}, cfg, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 11. Graceful shutdown ───────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Deferred closers run in reverse construction order: recorder
	// sessions, sweeper, pool, store.
	slog.Info("drover stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
