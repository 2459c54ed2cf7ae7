package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"leavehr/internal/domain/auth"
	"leavehr/internal/platform/identity"
	"leavehr/internal/transport/http/api"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// Auth resolves the bearer token through the identity provider. Requests
// without a token pass through anonymously; a token that cannot be validated
// is rejected.
func Auth(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				api.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "malformed authorization header", GetRequestID(r.Context()))
				return
			}

			user, err := provider.Validate(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, identity.ErrUnavailable) {
					slog.Warn("identity provider failed", "err", err, "requestId", GetRequestID(r.Context()))
					api.Fail(w, http.StatusServiceUnavailable, "IDENTITY_UNAVAILABLE", "identity provider unavailable", GetRequestID(r.Context()))
					return
				}
				api.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
