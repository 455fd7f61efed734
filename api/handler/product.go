package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/signalscrape/cache"
	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
)

// Product returns a handler for POST /api/v1/product.
//
// A page that yields no signals is still a 200 with every field null; only a
// malformed request is an error.
func Product(sc *scraper.Scraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		key := cache.Key("product", req.URL)
		var signals models.ProductSignals
		hit := cc.Get(c.Request.Context(), key, req.MaxAgeMs, &signals)
		if !hit {
			signals = sc.ExtractProductSignals(c.Request.Context(), req.URL)
			if !signals.IsEmpty() {
				cc.Set(c.Request.Context(), key, signals)
			}
		}

		c.JSON(http.StatusOK, models.ProductResponse{
			Success:     true,
			Data:        signals,
			CacheStatus: cacheStatus(req.MaxAgeMs, hit),
			Timing:      models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}
