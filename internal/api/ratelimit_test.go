package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(0, 0)
	assert.Nil(t, l)
	assert.True(t, l.Allow("1.2.3.4"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(1, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	call := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusNoContent, call("/v1/stops", "10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, call("/v1/stops", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("/v1/stops", "10.0.0.1"))
	// separate bucket per client
	assert.Equal(t, http.StatusNoContent, call("/v1/stops", "10.0.0.2"))
	// probes bypass the limiter
	assert.Equal(t, http.StatusNoContent, call("/healthz", "10.0.0.1"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
