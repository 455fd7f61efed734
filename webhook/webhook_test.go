package webhook

import (
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
)

func TestDeliverSignsBody(t *testing.T) {
	type received struct {
		sig  string
		body []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{sig: r.Header.Get("X-Signal-Signature"), body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second, nil, nil)
	event := &Event{Type: "batch.completed", JobID: "job-1", Timestamp: 1700000000, Data: map[string]int{"found": 2}}
	require.NoError(t, n.Deliver(context.Background(), srv.URL, "s3cret", event))

	r := <-got
	assert.Equal(t, "sha256="+Sign("s3cret", r.body), r.sig)

	var decoded Event
	require.NoError(t, json.Unmarshal(r.body, &decoded))
	assert.Equal(t, "job-1", decoded.JobID)
}

func TestDeliverWithoutSecret(t *testing.T) {
	var hasSig atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSig.Store(r.Header.Get("X-Signal-Signature") != "")
	}))
	defer srv.Close()

	require.NoError(t, NewNotifier(time.Second, nil, nil).Deliver(context.Background(), srv.URL, "", &Event{Type: "t"}))
	assert.False(t, hasSig.Load())
}

func TestDeliverWithRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second, []time.Duration{time.Millisecond, time.Millisecond}, nil)
	require.NoError(t, n.DeliverWithRetry(context.Background(), srv.URL, "", &Event{Type: "batch.completed"}))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDeliverWithRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(time.Second, []time.Duration{time.Millisecond}, nil)
	err := n.DeliverWithRetry(context.Background(), srv.URL, "", &Event{Type: "batch.completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(2), attempts.Load())
}
