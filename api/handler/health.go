package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/signalscrape/cache"
	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
func Health(sc *scraper.Scraper, cc *cache.Cache, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Platforms: sc.Platforms(),
			Cache:     cc.Backend(),
			Version:   Version,
		})
	}
}

// badRequest writes a 400 with an INVALID_INPUT error.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: err.Error(),
		},
	})
}

// cacheStatus is "hit"/"miss" when the caller asked for caching, else "".
func cacheStatus(maxAgeMs int, hit bool) string {
	switch {
	case maxAgeMs <= 0:
		return ""
	case hit:
		return "hit"
	default:
		return "miss"
	}
}
