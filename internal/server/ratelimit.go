package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kapu/roblox-profile-go/internal/constants"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	last    time.Time
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiter
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

func NewIPRateLimiter(rps, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
		idle:  30 * time.Minute,
		now:   time.Now,
	}
}

// Allow consumes a token for ip.
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	v, _ := l.limiters.LoadOrStore(ip, &ipLimiter{
		limiter: rate.NewLimiter(l.rps, l.burst),
		last:    now,
	})
	il := v.(*ipLimiter)

	il.mu.Lock()
	il.last = now
	il.mu.Unlock()

	return il.limiter.AllowN(now, 1)
}

// Middleware answers 429 once a client exceeds its budget.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(remoteIP(r)) {
			writeDetail(w, http.StatusTooManyRequests, constants.Messages.TooManyRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Prune drops limiters idle for longer than the idle window.
func (l *IPRateLimiter) Prune() int {
	now := l.now()
	pruned := 0
	l.limiters.Range(func(key, val any) bool {
		il := val.(*ipLimiter)
		il.mu.Lock()
		stale := now.Sub(il.last) > l.idle
		il.mu.Unlock()
		if stale {
			l.limiters.Delete(key)
			pruned++
		}
		return true
	})
	return pruned
}

// Run prunes every interval until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
