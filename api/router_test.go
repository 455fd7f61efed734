package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/signalscrape/cache"
	"github.com/use-agent/signalscrape/config"
	"github.com/use-agent/signalscrape/engine"
	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
	"github.com/use-agent/signalscrape/webhook"
)

type stubEngine struct {
	pages map[string]string
	calls atomic.Int32
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	s.calls.Add(1)
	html, ok := s.pages[req.URL]
	if !ok {
		fe := models.NewFetchError(models.ReasonStatus, req.URL, nil)
		fe.StatusCode = http.StatusNotFound
		return nil, fe
	}
	return &engine.FetchResult{HTML: html, StatusCode: http.StatusOK, FinalURL: req.URL}, nil
}

const (
	productURL = "https://shop.example.com/item"
	igURL      = "https://www.instagram.com/acme/"
	fbURL      = "https://www.facebook.com/acme"
)

type testEnv struct {
	router http.Handler
	engine *stubEngine
}

func newTestEnv(t *testing.T, cfg *config.Config, deps Deps) *testEnv {
	t.Helper()
	stub := &stubEngine{pages: map[string]string{
		productURL: `<html><head><title>Blue Kettle</title>
			<meta name="description" content="A kettle."></head>
			<body><h1>Blue Kettle</h1><span itemprop="price" content="39.99">$39.99</span></body></html>`,
		igURL: `<meta property="og:description" content="2.5K Followers, 3 Following">`,
		fbURL: `<div>1,234 likes</div>`,
	}}
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.Server.Mode = "test"
	if cfg.Batch.MaxEntries == 0 {
		cfg.Batch.MaxEntries = 100
	}
	deps.Scraper = scraper.New(stub, scraper.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &testEnv{router: NewRouter(ctx, deps, cfg, time.Now()), engine: stub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "disabled", resp.Cache)
	assert.Contains(t, resp.Platforms, "instagram")
	assert.Contains(t, resp.Platforms, "youtube")
}

func TestProduct(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodPost, "/api/v1/product", map[string]any{"url": productURL})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.ProductResponse](t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data.Title)
	assert.Equal(t, "Blue Kettle", *resp.Data.Title)
	require.NotNil(t, resp.Data.Price)
	assert.Equal(t, "$39.99", *resp.Data.Price)
	assert.Empty(t, resp.CacheStatus)
}

func TestProductFetchFailureIsStillSuccess(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodPost, "/api/v1/product", map[string]any{"url": "https://shop.example.com/gone"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.ProductResponse](t, w)
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.IsEmpty())
}

func TestProductMalformedRequest(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	for _, body := range []string{`{`, `{}`, `{"url": 5}`} {
		w := env.do(t, http.MethodPost, "/api/v1/product", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		resp := decode[models.ErrorResponse](t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
	}
}

func TestProductCache(t *testing.T) {
	store := cache.NewMemoryStore(10, time.Hour)
	t.Cleanup(store.Stop)
	env := newTestEnv(t, nil, Deps{Cache: cache.New(store)})

	body := map[string]any{"url": productURL, "max_age_ms": 60_000}

	first := decode[models.ProductResponse](t, env.do(t, http.MethodPost, "/api/v1/product", body))
	assert.Equal(t, "miss", first.CacheStatus)

	second := decode[models.ProductResponse](t, env.do(t, http.MethodPost, "/api/v1/product", body))
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, int32(1), env.engine.calls.Load())
}

func TestFollowers(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodPost, "/api/v1/followers", map[string]any{"url": igURL, "platform": "Instagram"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.FollowerResponse](t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data.Followers)
	assert.Equal(t, int64(2500), *resp.Data.Followers)
	assert.Equal(t, "Instagram", resp.Data.Platform)
}

func TestFollowersUnknownPlatform(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodPost, "/api/v1/followers", map[string]any{"url": igURL, "platform": "myspace"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.FollowerResponse](t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Data.Followers)
	assert.Zero(t, env.engine.calls.Load())
	assert.Contains(t, w.Body.String(), `"followers":null`)
}

func TestFollowersCache(t *testing.T) {
	store := cache.NewMemoryStore(10, time.Hour)
	t.Cleanup(store.Stop)
	env := newTestEnv(t, nil, Deps{Cache: cache.New(store)})

	body := map[string]any{"url": igURL, "platform": "instagram", "max_age_ms": 60_000}
	env.do(t, http.MethodPost, "/api/v1/followers", body)
	resp := decode[models.FollowerResponse](t, env.do(t, http.MethodPost, "/api/v1/followers", body))

	assert.Equal(t, "hit", resp.CacheStatus)
	require.NotNil(t, resp.Data.Followers)
	assert.Equal(t, int64(2500), *resp.Data.Followers)
	assert.Equal(t, int32(1), env.engine.calls.Load())
}

func TestFollowersBatch(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodPost, "/api/v1/followers/batch", map[string]any{
		"profiles": []map[string]string{
			{"platform": "instagram", "url": igURL},
			{"platform": "facebook", "url": fbURL},
			{"platform": "twitter", "url": "https://x.com/missing"},
			{"platform": "", "url": igURL},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.SocialBatchResponse](t, w)
	require.Len(t, resp.Results, 4)
	assert.Equal(t, 2, resp.Found)
	assert.Equal(t, int64(2500), *resp.Results[0].Followers)
	assert.Equal(t, int64(1234), *resp.Results[1].Followers)
	assert.Nil(t, resp.Results[2].Followers)
	assert.Nil(t, resp.Results[3].Followers)
}

func TestFollowersBatchLimits(t *testing.T) {
	env := newTestEnv(t, &config.Config{Batch: config.BatchConfig{MaxEntries: 2}}, Deps{})

	profiles := []map[string]string{{"platform": "instagram", "url": igURL}}
	for range 2 {
		profiles = append(profiles, profiles[0])
	}
	w := env.do(t, http.MethodPost, "/api/v1/followers/batch", map[string]any{"profiles": profiles})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "maximum 2 profiles")

	w = env.do(t, http.MethodPost, "/api/v1/followers/batch", map[string]any{"profiles": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.engine.calls.Load())
}

func TestAsyncBatchWithWebhook(t *testing.T) {
	events := make(chan webhook.Event, 1)
	var signature atomic.Value
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature.Store(r.Header.Get("X-Signal-Signature"))
		var ev webhook.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		events <- ev
	}))
	defer hook.Close()

	notifier := webhook.NewNotifier(time.Second, nil, nil)
	env := newTestEnv(t, nil, Deps{Notifier: notifier})

	w := env.do(t, http.MethodPost, "/api/v1/followers/batch/async", map[string]any{
		"profiles": []map[string]string{
			{"platform": "instagram", "url": igURL},
			{"platform": "tiktok", "url": "https://www.tiktok.com/@gone"},
		},
		"webhook_url":    hook.URL,
		"webhook_secret": "s3cret",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	accepted := decode[models.BatchResponse](t, w)
	assert.Equal(t, 2, accepted.Total)
	assert.Contains(t, accepted.ID, "batch-")

	select {
	case ev := <-events:
		assert.Equal(t, "batch.completed", ev.Type)
		assert.Equal(t, accepted.ID, ev.JobID)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}
	assert.Contains(t, signature.Load(), "sha256=")

	status := decode[models.BatchStatusResponse](t, env.do(t, http.MethodGet, "/api/v1/followers/batch/"+accepted.ID, nil))
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 2, status.Completed)
	assert.Equal(t, 1, status.Found)
	require.Len(t, status.Results, 2)
	assert.Equal(t, int64(2500), *status.Results[0].Followers)
	assert.Nil(t, status.Results[1].Followers)
}

func TestGetBatchNotFound(t *testing.T) {
	env := newTestEnv(t, nil, Deps{})

	w := env.do(t, http.MethodGet, "/api/v1/followers/batch/batch-nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeNotFound, decode[models.ErrorResponse](t, w).Error.Code)
}

func TestAuthGuardsAPIButNotHealth(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{Enabled: true, APIKeys: []string{"key"}}}
	env := newTestEnv(t, cfg, Deps{})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/v1/product", map[string]any{"url": productURL}).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/product", map[string]any{"url": productURL}, "X-API-Key", "key").Code)
}
