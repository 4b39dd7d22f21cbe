package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Policy names the throttled dimension and its budget: KeyFor derives the
// bucket (the caller IP for checkout), Max attempts per Window.
type Policy struct {
	KeyFor func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler applies a Policy in front of an endpoint. Limiter failures fail
// open: a Redis outage must not take checkout down with it, OnError gets the
// cause for logging.
type Handler struct {
	Limiter Limiter
	Policy  Policy
	OnError func(error)
}

// Middleware wraps next with the rate limit check.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Policy.KeyFor == nil {
			next.ServeHTTP(w, r)
			return
		}
		decision, err := h.Limiter.Take(r.Context(), h.Policy.KeyFor(r), h.Policy.Window, h.Policy.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := h.Policy.Max
		if limit < 0 {
			limit = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
