package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
	"github.com/use-agent/signalscrape/webhook"
)

const (
	batchRetention = time.Hour
	batchSweep     = 5 * time.Minute
)

// batchEntry guards one job's mutable state.
type batchEntry struct {
	mu  sync.Mutex
	job models.BatchJob
}

func (e *batchEntry) snapshot() models.BatchStatusResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	results := make([]models.FollowerExtractionResult, len(e.job.Results))
	copy(results, e.job.Results)
	return models.BatchStatusResponse{
		ID:        e.job.ID,
		Status:    e.job.Status,
		Completed: e.job.Completed,
		Found:     e.job.Found,
		Total:     e.job.Total,
		Results:   results,
	}
}

// BatchStore holds in-flight and finished async follower batches.
type BatchStore struct {
	jobs sync.Map // id -> *batchEntry
}

// NewBatchStore creates a store whose jobs are dropped an hour after they
// were created. The sweep stops when ctx ends.
func NewBatchStore(ctx context.Context) *BatchStore {
	s := &BatchStore{}
	go func() {
		ticker := time.NewTicker(batchSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.expire(now.Add(-batchRetention))
			}
		}
	}()
	return s
}

func (s *BatchStore) expire(cutoff time.Time) {
	s.jobs.Range(func(key, value any) bool {
		e := value.(*batchEntry)
		e.mu.Lock()
		old := e.job.CreatedAt < cutoff.Unix()
		e.mu.Unlock()
		if old {
			s.jobs.Delete(key)
		}
		return true
	})
}

func (s *BatchStore) load(id string) (*batchEntry, bool) {
	v, ok := s.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*batchEntry), true
}

// PostBatch returns a handler for POST /api/v1/followers/batch/async.
// It registers a job, starts it in the background and answers at once.
func PostBatch(sc *scraper.Scraper, store *BatchStore, notifier *webhook.Notifier, maxEntries int) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindBatch(c, maxEntries)
		if !ok {
			return
		}

		entry := &batchEntry{job: models.BatchJob{
			ID:        "batch-" + uuid.NewString(),
			Status:    "processing",
			Total:     len(req.Profiles),
			Results:   make([]models.FollowerExtractionResult, len(req.Profiles)),
			CreatedAt: time.Now().Unix(),
		}}
		store.jobs.Store(entry.job.ID, entry)

		go runBatch(sc, notifier, entry, req)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     entry.job.ID,
			Status: "processing",
			Total:  len(req.Profiles),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/followers/batch/:id.
func GetBatch(store *BatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, ok := store.load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "batch job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, entry.snapshot())
	}
}

// runBatch extracts every profile, recording progress as entries finish,
// then fires the completion webhook if one was requested.
func runBatch(sc *scraper.Scraper, notifier *webhook.Notifier, entry *batchEntry, req models.SocialBatchRequest) {
	results := sc.ExtractManySocialMediaProgress(context.Background(), req.Profiles,
		func(i int, r models.FollowerExtractionResult) {
			entry.mu.Lock()
			defer entry.mu.Unlock()
			entry.job.Results[i] = r
			entry.job.Completed++
			if r.Followers != nil {
				entry.job.Found++
			}
		})

	entry.mu.Lock()
	entry.job.Results = results
	entry.job.Completed = len(results)
	entry.job.Found = scraper.CountFound(results)
	entry.job.Status = "completed"
	entry.mu.Unlock()

	status := entry.snapshot()
	slog.Info("batch job finished",
		"id", status.ID,
		"found", status.Found,
		"total", status.Total,
	)

	if req.WebhookURL != "" && notifier != nil {
		notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      "batch.completed",
			JobID:     status.ID,
			Timestamp: time.Now().Unix(),
			Data:      status,
		})
	}
}
