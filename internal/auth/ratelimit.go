package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Login attempts allowed per client: a burst of five, then one every twelve
// seconds.
const (
	loginBurst    = 5
	loginInterval = 12 * time.Second
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
}

// NewRateLimiter returns a limiter allowing burst requests at once and r per
// second afterwards.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rate.Limiter), rate: r, burst: burst}
}

// NewLoginLimiter returns the limiter used for /api/login.
func NewLoginLimiter() *RateLimiter {
	return NewRateLimiter(rate.Every(loginInterval), loginBurst)
}

// Allow reports whether ip may make another request now.
func (l *RateLimiter) Allow(ip string) bool {
	return l.limiter(ip).Allow()
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.buckets[ip]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.buckets[ip] = lim
	}
	return lim
}
