package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/use-agent/signalscrape/config"
)

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyAPIKey))
	})
	return r
}

func do(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newTestRouter(Auth([]string{"k1", "k2"}))

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", "k1", http.StatusOK},
		{"bearer", "Authorization", "Bearer k2", http.StatusOK},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"prefix of key", "X-API-Key", "k", http.StatusUnauthorized},
		{"basic scheme", "Authorization", "Basic k1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.header, tt.value)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestAuthStoresKey(t *testing.T) {
	w := do(newTestRouter(Auth([]string{"k1"})), "X-API-Key", "k1")
	assert.Equal(t, "k1", w.Body.String())
}

func TestAuthNoKeysIsOpen(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(newTestRouter(Auth(nil)), "", "").Code)
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(RateLimit(t.Context(), config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, do(r, "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "", "").Code)

	w := do(r, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitPerKey(t *testing.T) {
	r := newTestRouter(
		Auth([]string{"a", "b"}),
		RateLimit(t.Context(), config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}),
	)

	assert.Equal(t, http.StatusOK, do(r, "X-API-Key", "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "X-API-Key", "a").Code)
	assert.Equal(t, http.StatusOK, do(r, "X-API-Key", "b").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := newTestRouter(RateLimit(t.Context(), config.RateLimitConfig{}))
	for range 20 {
		assert.Equal(t, http.StatusOK, do(r, "", "").Code)
	}
}

func TestLimiterSweepLoopStopsWithContext(t *testing.T) {
	set := newLimiterSet(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	set.get("idle", time.Now().Add(-2*time.Hour))
	set.get("active", time.Now().Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		set.sweepLoop(ctx, time.Millisecond, time.Hour)
		close(done)
	}()

	assert.Eventually(t, func() bool { return set.size() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep loop still running after cancel")
	}
}
