package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/config"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// limiterPool keeps one token bucket per client IP; idle clients expire.
type limiterPool struct {
	limiters *lru.LRU[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func newLimiterPool(rps, burst int) *limiterPool {
	return &limiterPool{
		limiters: lru.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	if limiter, ok := p.limiters.Get(ip); ok {
		return limiter
	}
	limiter := rate.NewLimiter(p.rps, p.burst)
	p.limiters.Add(ip, limiter)
	return limiter
}

// RateLimitMiddleware enforces per-IP rate limiting via token bucket.
// If RateLimitRPS <= 0, the middleware is a no-op pass-through.
func RateLimitMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		return next
	}

	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = cfg.RateLimitRPS
	}
	pool := newLimiterPool(cfg.RateLimitRPS, burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /healthz stays reachable for probes.
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if !pool.get(clientIP(r)).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    "rate_limited",
					"message": "Too many requests",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
