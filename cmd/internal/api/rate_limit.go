package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter throttles credential-guessing per client IP. Limiters are kept
// in memory and pruned after an idle period.
type loginLimiter struct {
	mu    sync.Mutex
	perIP map[string]*ipEntry

	limit rate.Limit
	burst int
	idle  time.Duration
}

type ipEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perMinute float64, burst int) *loginLimiter {
	return &loginLimiter{
		perIP: make(map[string]*ipEntry),
		limit: rate.Limit(perMinute / 60),
		burst: burst,
		idle:  10 * time.Minute,
	}
}

func (l *loginLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.perIP {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.perIP, k)
		}
	}

	e, ok := l.perIP[ip]
	if !ok {
		e = &ipEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.perIP[ip] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
