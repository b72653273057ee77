package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key and forgets keys that stay idle
// longer than IdleTTL.
type Limiter struct {
	mu           sync.Mutex
	entries      map[string]*entry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Option func(*Limiter)

func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(l *Limiter) { l.cleanupEvery = d }
}

// WithClock replaces wall-clock time, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a limiter allowing rps sustained requests per key with bursts
// of burst. A non-positive rps disables limiting.
func New(rps float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		entries:      make(map[string]*entry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	if rps <= 0 {
		l.rps = rate.Inf
	}
	if l.burst <= 0 {
		l.burst = 1
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token for key and reports whether the request may
// proceed.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = ent
	}
	ent.lastSeen = now
	l.mu.Unlock()

	return ent.limiter.AllowN(now, 1)
}

func (l *Limiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartJanitor runs Cleanup periodically until ctx is cancelled.
func (l *Limiter) StartJanitor(ctx context.Context) {
	if l.cleanupEvery <= 0 {
		return
	}
	ticker := time.NewTicker(l.cleanupEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}
