package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
)

// ActionLimiter keeps one token bucket per caller key, used to throttle
// outreach actions per signed-in user.
type ActionLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewActionLimiter allows perSecond actions/sec with the given burst per key.
// Stale limiters are swept until ctx is done.
func NewActionLimiter(ctx context.Context, perSecond float64, burst int) *ActionLimiter {
	l := &ActionLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(perSecond),
		burst:    max(1, burst),
		now:      time.Now,
	}
	go l.sweep(ctx)
	return l
}

// Allow spends one token for key if one is available.
func (l *ActionLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	l.lastSeen[key] = now
	return limiter.AllowN(now, 1)
}

func (l *ActionLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		l.evict(10 * time.Minute)
	}
}

// evict drops limiters not used within maxAge.
func (l *ActionLimiter) evict(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-maxAge)
	for key, last := range l.lastSeen {
		if last.Before(cutoff) {
			delete(l.limiters, key)
			delete(l.lastSeen, key)
		}
	}
}

// Limit rejects requests over budget with 429. Requests are keyed by the
// session user, falling back to the client address.
func (l *ActionLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(limiterKey(r)) {
			writeDetail(w, http.StatusTooManyRequests, "too many outreach actions, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimitMutations applies Limit to every method except GET, HEAD and OPTIONS.
func (l *ActionLimiter) LimitMutations(next http.Handler) http.Handler {
	limited := l.Limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func limiterKey(r *http.Request) string {
	if s, ok := tenancy.SessionFromContext(r.Context()); ok {
		return "user:" + s.UserID
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return "ip:" + xri
	}
	return "ip:" + r.RemoteAddr
}
