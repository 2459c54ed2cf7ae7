package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"leavehr/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

// NewLimiter builds an in-process limiter allowing perMinute hits per key.
func NewLimiter(perMinute int) *limiter.Limiter {
	rate := limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}
	return limiter.New(memory.NewStore(), rate)
}

// RateLimit throttles by the authenticated user, falling back to the caller
// address for anonymous requests.
func RateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	return RateLimitBy(l, ActorOrIPKey)
}

func RateLimitBy(l *limiter.Limiter, keyFn RateLimitKeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforce(l, keyFn, w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies a tighter per-actor budget to leave
// decisions, balance adjustments and the accrual and carry-over triggers.
func SensitiveMutationRateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSensitiveMutation(r) && !enforce(l, ActorOrIPKey, w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ActorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + ClientIP(r)
}

// IPKey keys kiosks by terminal address; they share one service account.
func IPKey(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

func enforce(l *limiter.Limiter, keyFn RateLimitKeyFunc, w http.ResponseWriter, r *http.Request) bool {
	if l == nil {
		return true
	}
	key := keyFn(r)
	lctx, err := l.Get(r.Context(), key)
	if err != nil {
		slog.Warn("rate limit lookup failed", "key", key, "err", err)
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

	if lctx.Reached {
		retry := max(lctx.Reset-time.Now().Unix(), 1)
		w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
		slog.Warn("rate limit exceeded",
			"key", key,
			"path", r.URL.Path,
			"method", r.Method,
			"limit", lctx.Limit,
		)
		api.Fail(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func isSensitiveMutation(r *http.Request) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
		return false
	}
	path := strings.TrimPrefix(strings.TrimSpace(r.URL.Path), "/api/v1")
	switch path {
	case "/leave/accrual/run", "/leave/carryover/run", "/leave/balances/adjust":
		return true
	}
	if strings.HasPrefix(path, "/leave/requests/") && (strings.HasSuffix(path, "/approve") || strings.HasSuffix(path, "/reject")) {
		return true
	}
	return strings.HasPrefix(path, "/attendance/fingerprint/")
}
