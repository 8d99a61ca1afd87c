package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// CORSConfig configures CORS. Empty lists get defaults suited to the API:
// GET, POST and DELETE, the request id header, and Content-Disposition
// exposed for downloads. No AllowedOrigins allows every origin.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Logger           *slog.Logger
}

func (c CORSConfig) originAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// CORS answers preflight requests with 204 and echoes allowed origins.
func CORS(cfg CORSConfig) func(next http.Handler) http.Handler {
	headers := map[string]string{
		"Access-Control-Allow-Methods":  joinOr(cfg.AllowedMethods, "GET, POST, DELETE, OPTIONS"),
		"Access-Control-Allow-Headers":  joinOr(cfg.AllowedHeaders, "Accept, Content-Type, X-Request-ID"),
		"Access-Control-Expose-Headers": joinOr(cfg.ExposedHeaders, "X-Request-ID, Content-Disposition"),
	}
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 300
	}
	headers["Access-Control-Max-Age"] = strconv.Itoa(maxAge)
	if cfg.AllowCredentials {
		headers["Access-Control-Allow-Credentials"] = "true"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := cfg.originAllowed(origin)
			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			for k, v := range headers {
				w.Header().Set(k, v)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.Logger != nil {
				cfg.Logger.DebugContext(r.Context(), "CORS preflight",
					slog.String("origin", origin),
					slog.Bool("allowed", allowed))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

// SecurityHeaders sets headers for a JSON and file-download API. HSTS is
// only sent over TLS.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// Compress gzips JSON, problem and CSV responses at level.
func Compress(level int) func(next http.Handler) http.Handler {
	return middleware.Compress(level, "application/json", "application/problem+json", "text/csv")
}
