package worker

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a set of token buckets keyed by client (IP, API key, ...)
type Limiter struct {
	limiters     map[string]*keyLimiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

// NewLimiter creates a limiter giving every key requestsPerSecond with the
// given burst. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*keyLimiter),
		defaultRate:  r,
		defaultBurst: burst,
		now:          time.Now,
	}
}

// Allow reports whether key may proceed now, consuming a token if so
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// get returns the limiter for key, creating it on first use
func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	kl, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		l.mu.Lock()
		kl.lastSeen = now
		l.mu.Unlock()
		return kl.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if kl, exists := l.limiters[key]; exists {
		kl.lastSeen = now
		return kl.limiter
	}

	kl = &keyLimiter{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst), lastSeen: now}
	l.limiters[key] = kl

	return kl.limiter
}

// Prune drops limiters idle for longer than idle and returns how many were
// removed
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, kl := range l.limiters {
		if kl.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
