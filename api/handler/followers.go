package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/signalscrape/cache"
	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
)

// Followers returns a handler for POST /api/v1/followers.
//
// Unknown platforms and pages without a count come back as followers: null.
func Followers(sc *scraper.Scraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.FollowerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		key := cache.Key("followers", strings.ToLower(req.Platform), req.URL)
		result := models.FollowerExtractionResult{Platform: req.Platform, URL: req.URL}
		var followers int64
		hit := cc.Get(c.Request.Context(), key, req.MaxAgeMs, &followers)
		if hit {
			result.Followers = &followers
		} else {
			result.Followers = sc.ExtractFollowerCount(c.Request.Context(), req.URL, req.Platform)
			if result.Followers != nil {
				cc.Set(c.Request.Context(), key, *result.Followers)
			}
		}

		c.JSON(http.StatusOK, models.FollowerResponse{
			Success:     true,
			Data:        result,
			CacheStatus: cacheStatus(req.MaxAgeMs, hit),
			Timing:      models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}

// FollowersBatch returns a handler for POST /api/v1/followers/batch. It
// blocks until every entry has finished.
func FollowersBatch(sc *scraper.Scraper, maxEntries int) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		req, ok := bindBatch(c, maxEntries)
		if !ok {
			return
		}

		results := sc.ExtractManySocialMedia(c.Request.Context(), req.Profiles)
		c.JSON(http.StatusOK, models.SocialBatchResponse{
			Success: true,
			Results: results,
			Found:   scraper.CountFound(results),
			Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}

// bindBatch decodes a batch request and enforces the configured size limit.
func bindBatch(c *gin.Context, maxEntries int) (models.SocialBatchRequest, bool) {
	var req models.SocialBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return req, false
	}
	if maxEntries > 0 && len(req.Profiles) > maxEntries {
		badRequest(c, fmt.Errorf("maximum %d profiles per batch", maxEntries))
		return req, false
	}
	return req, true
}
