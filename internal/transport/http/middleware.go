package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"github.com/vinodismyname/salesdash/pkg/mcperr"
)

// RateLimiter rejects requests beyond a global token bucket with 429.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns a limiter allowing rps requests per second with the
// given burst. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{}
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Handler implements rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl.limiter == nil {
		return next
	}
	// seconds until the next token
	retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(rl.limiter.Limit()))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			hlog.FromRequest(r).Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("rate limit exceeded")
			w.Header().Set("Retry-After", retryAfter)
			_ = render.Render(w, r, NewAPIError(http.StatusTooManyRequests, mcperr.BusyResource, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders sets conservative browser headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		// Inline styles and the picker's onchange handler are the only inline code.
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self'; style-src 'unsafe-inline'; script-src 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}

// accessLog logs one line per request through the request-scoped logger.
func accessLog(r *http.Request, status, size int, duration time.Duration) {
	evt := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		evt = hlog.FromRequest(r).Error()
	}
	evt.
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// withLogger installs hlog's handlers: logger injection, request ids and access logging.
func withLogger(logger zerolog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
		hlog.RemoteAddrHandler("ip"),
		hlog.AccessHandler(accessLog),
	}
}
