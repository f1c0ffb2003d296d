package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client address.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*visitor
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter returns nil when rps <= 0; a nil limiter passes every request.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return &RateLimiter{rps: rate.Limit(rps), burst: burst, clients: map[string]*visitor{}}
}

func (l *RateLimiter) Allow(client string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	v := l.clients[client]
	if v == nil {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[client] = v
	}
	v.seen = now
	if len(l.clients) > 10000 {
		for k, c := range l.clients {
			if now.Sub(c.seen) > 10*time.Minute {
				delete(l.clients, k)
			}
		}
	}
	l.mu.Unlock()
	return v.lim.AllowN(now, 1)
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
