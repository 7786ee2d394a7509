package folio

import (
	"context"
	"sync"
	"time"
)

// LoginLimiter rate-limits attempts per key, usually a client IP. The
// contact form shares it with a longer window.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

// NewLoginLimiter creates a LoginLimiter that allows max attempts per window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Run drops stale entries once per window until ctx is done.
func (l *LoginLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *LoginLimiter) cleanup() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, hits := range l.attempts {
		kept := prune(hits, cutoff)
		if len(kept) == 0 {
			delete(l.attempts, key)
		} else {
			l.attempts[key] = kept
		}
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow checks that key is under the limit and records the attempt.
func (l *LoginLimiter) Allow(key string) bool {
	if !l.Check(key) {
		return false
	}
	l.Record(key)
	return true
}

// Check returns true if key has not exceeded the limit. It does not
// record an attempt; call Record separately on failure.
func (l *LoginLimiter) Check(key string) bool {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.attempts[key], cutoff)
	if len(kept) == 0 {
		delete(l.attempts, key)
		return true
	}
	l.attempts[key] = kept
	return len(kept) < l.max
}

// Record registers an attempt for key.
func (l *LoginLimiter) Record(key string) {
	l.mu.Lock()
	l.attempts[key] = append(l.attempts[key], l.now())
	l.mu.Unlock()
}

// Reset forgets the attempts of key, e.g. after a successful login.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}

// RetryAt returns when key may try again; the zero time when it may now.
func (l *LoginLimiter) RetryAt(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	hits := l.attempts[key]
	if len(hits) < l.max {
		return time.Time{}
	}
	return hits[len(hits)-l.max].Add(l.window)
}

// Max returns the attempts allowed per window.
func (l *LoginLimiter) Max() int { return l.max }

// Window returns the limiter window.
func (l *LoginLimiter) Window() time.Duration { return l.window }

func (l *LoginLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
