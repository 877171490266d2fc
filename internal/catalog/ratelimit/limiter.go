// internal/catalog/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// HostLimiter enforces a minimum interval between requests to one
// upstream host, shared across all concurrent search pipelines. This is
// the only cross-query coordination point: it serializes the spacing
// decision but never holds the lock while sleeping, so unrelated
// per-product work is not blocked.
type HostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     map[string]time.Time
}

func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		next:     make(map[string]time.Time),
	}
}

// Acquire blocks until a request slot for host is available or ctx is
// done. Slots are handed out in reservation order.
func (l *HostLimiter) Acquire(ctx context.Context, host string) error {
	l.mu.Lock()
	now := time.Now()
	at := l.next[host]
	if at.Before(now) {
		at = now
	}
	l.next[host] = at.Add(l.interval)
	l.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
