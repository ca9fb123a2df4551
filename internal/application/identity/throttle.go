package identity

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginThrottle limits login attempts per client key (usually the IP)
type LoginThrottle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginThrottle allows attempts login attempts per window for each key.
// attempts <= 0 disables throttling.
func NewLoginThrottle(attempts int, window time.Duration) *LoginThrottle {
	t := &LoginThrottle{
		limiters: make(map[string]*throttleEntry),
		burst:    attempts,
		idle:     2 * window,
		now:      time.Now,
	}
	if attempts > 0 && window > 0 {
		t.limit = rate.Every(window / time.Duration(attempts))
	} else {
		t.limit = rate.Inf
	}
	return t
}

// Allow consumes one attempt for key
func (t *LoginThrottle) Allow(key string) bool {
	if t == nil || t.limit == rate.Inf {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.limiters[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = e
	}
	e.lastSeen = now
	t.evictLocked(now)
	return e.limiter.AllowN(now, 1)
}

// evictLocked drops keys that have been idle long enough to have a full bucket again
func (t *LoginThrottle) evictLocked(now time.Time) {
	if len(t.limiters) < 1024 {
		return
	}
	for key, e := range t.limiters {
		if now.Sub(e.lastSeen) > t.idle {
			delete(t.limiters, key)
		}
	}
}
