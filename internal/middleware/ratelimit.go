package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client address.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter

	logger *slog.Logger
}

// NewRateLimiter allows each client rps requests per second with bursts of
// burst requests.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
		logger:  logger,
	}
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.clients[client]
	if !ok {
		l = rate.NewLimiter(rl.rps, rl.burst)
		rl.clients[client] = l
	}
	return l
}

// Handler rejects requests over the client's budget with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if rl.limiter(client).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("client", client),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		w.Header().Set("Retry-After", "1")
		problem(r.Context(), w, http.StatusTooManyRequests,
			"/errors/rate-limit", "Too Many Requests", "Rate limit exceeded")
	})
}

func clientKey(r *http.Request) string {
	ip := GetRealIP(r)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

// problem writes a minimal RFC 7807 body for middleware that runs outside
// the error handler.
func problem(ctx context.Context, w http.ResponseWriter, status int, typ, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type":     typ,
		"title":    title,
		"status":   status,
		"detail":   detail,
		"trace_id": GetRequestID(ctx),
	})
}
