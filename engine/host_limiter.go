package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterEntry stores a host's token bucket and when it was last used.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// HostLimiter paces outbound requests per host so a batch of profiles on the
// same platform does not arrive as a burst. Idle hosts are forgotten after
// the configured TTL.
type HostLimiter struct {
	mu      sync.Mutex
	hosts   map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	done    chan struct{}
	stopped sync.Once
}

// NewHostLimiter creates a HostLimiter allowing rps requests per second per
// host with the given burst, and starts a cleanup goroutine. It returns nil
// when rps <= 0, and a nil *HostLimiter never blocks.
func NewHostLimiter(rps float64, burst int, ttl time.Duration) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	hl := &HostLimiter{
		hosts: make(map[string]*limiterEntry),
		rps:   rate.Limit(rps),
		burst: burst,
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go hl.cleanupLoop()
	return hl
}

// Wait blocks until host may be contacted or ctx ends.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	if hl == nil {
		return nil
	}
	return hl.get(host).Wait(ctx)
}

// Len returns the number of tracked hosts.
func (hl *HostLimiter) Len() int {
	if hl == nil {
		return 0
	}
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return len(hl.hosts)
}

// Stop terminates the background cleanup goroutine.
func (hl *HostLimiter) Stop() {
	if hl == nil {
		return
	}
	hl.stopped.Do(func() { close(hl.done) })
}

func (hl *HostLimiter) get(host string) *rate.Limiter {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))

	hl.mu.Lock()
	defer hl.mu.Unlock()
	entry, ok := hl.hosts[host]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(hl.rps, hl.burst)}
		hl.hosts[host] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (hl *HostLimiter) sweep(now time.Time) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	for host, entry := range hl.hosts {
		if now.Sub(entry.lastSeen) > hl.ttl {
			delete(hl.hosts, host)
		}
	}
}

func (hl *HostLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-hl.done:
			return
		case now := <-ticker.C:
			hl.sweep(now)
		}
	}
}
