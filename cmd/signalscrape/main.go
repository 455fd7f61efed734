package main

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

	"github.com/use-agent/signalscrape/api"
	"github.com/use-agent/signalscrape/cache"
	"github.com/use-agent/signalscrape/config"
	"github.com/use-agent/signalscrape/scraper"
	"github.com/use-agent/signalscrape/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("signalscrape starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"workers", cfg.Batch.Workers,
		"host_rps", cfg.Fetch.HostRPS,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Initialise scraper ───────────────────────────────────────
	sc, stopScraper, err := scraper.NewFromConfig(cfg, slog.Default())
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer stopScraper()

	// ── 4. Initialise cache ─────────────────────────────────────────
	cc, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		slog.Error("failed to initialise cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, api.Deps{
		Scraper:  sc,
		Cache:    cc,
		Notifier: webhook.NewNotifier(cfg.Webhook.Timeout, cfg.Webhook.RetryDelays, slog.Default()),
	}, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("signalscrape stopped")
}

// newCache builds the configured cache backend.
func newCache(ctx context.Context, cfg config.CacheConfig) (*cache.Cache, func(), error) {
	switch cfg.Backend {
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("cache backend ready", "backend", "redis", "addr", cfg.RedisAddr)
		return cache.New(store), func() { _ = store.Close() }, nil
	case "memory", "":
		store := cache.NewMemoryStore(cfg.MaxEntries, cfg.TTL)
		slog.Info("cache backend ready", "backend", "memory", "max_entries", cfg.MaxEntries)
		return cache.New(store), store.Stop, nil
	case "none", "disabled":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
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
