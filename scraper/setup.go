package scraper

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/signalscrape/config"
	"github.com/use-agent/signalscrape/engine"
	"github.com/use-agent/signalscrape/social"
)

// NewFromConfig builds the HTTP engine, optional host limiter and rule table
// described by cfg and returns a Scraper over them. Call the returned stop
// function when done.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Scraper, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var rules social.Table
	if cfg.Rules.File != "" {
		t, err := social.LoadTable(cfg.Rules.File)
		if err != nil {
			return nil, nil, fmt.Errorf("scraper: %w", err)
		}
		rules = t
		logger.Info("platform rules loaded", "file", cfg.Rules.File, "platforms", len(t))
	}

	limiter := engine.NewHostLimiter(cfg.Fetch.HostRPS, cfg.Fetch.HostBurst, 10*time.Minute)
	eng := engine.NewHTTPEngine(engine.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		Accept:         cfg.Fetch.Accept,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		Proxy:          cfg.Fetch.Proxy,
		TLSProfile:     cfg.Fetch.TLSProfile,
		Limiter:        limiter,
		Logger:         logger,
	})

	sc := New(eng, Options{
		ProductTimeout: cfg.Fetch.ProductTimeout,
		SocialTimeout:  cfg.Fetch.SocialTimeout,
		Workers:        cfg.Batch.Workers,
		Rules:          rules,
		Logger:         logger,
	})
	return sc, limiter.Stop, nil
}
