package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/signalscrape/api/handler"
	"github.com/use-agent/signalscrape/api/middleware"
	"github.com/use-agent/signalscrape/cache"
	"github.com/use-agent/signalscrape/config"
	"github.com/use-agent/signalscrape/scraper"
	"github.com/use-agent/signalscrape/webhook"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Scraper  *scraper.Scraper
	Cache    *cache.Cache      // nil disables response caching
	Notifier *webhook.Notifier // nil disables batch webhooks
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// Background work owned by the router stops when ctx ends.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(deps.Scraper, deps.Cache, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/product", handler.Product(deps.Scraper, deps.Cache))
	protected.POST("/followers", handler.Followers(deps.Scraper, deps.Cache))

	batches := handler.NewBatchStore(ctx)
	protected.POST("/followers/batch", handler.FollowersBatch(deps.Scraper, cfg.Batch.MaxEntries))
	protected.POST("/followers/batch/async", handler.PostBatch(deps.Scraper, batches, deps.Notifier, cfg.Batch.MaxEntries))
	protected.GET("/followers/batch/:id", handler.GetBatch(batches))

	return r
}
