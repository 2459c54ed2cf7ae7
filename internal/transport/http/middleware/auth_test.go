package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leavehr/internal/domain/auth"
	"leavehr/internal/platform/identity"
	"leavehr/internal/requestctx"
)

type stubProvider struct {
	user auth.UserContext
	err  error
}

func (s stubProvider) Validate(ctx context.Context, token string) (auth.UserContext, error) {
	return s.user, s.err
}

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", RoleName: auth.RoleHR}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(identity.NewJWTProvider(secret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		if user.UserID != "u1" || user.RoleName != auth.RoleHR {
			t.Fatalf("unexpected user: %+v", user)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth(stubProvider{err: errors.New("must not be called")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
		want   int
	}{
		{"malformed", "Token abc", nil, http.StatusUnauthorized},
		{"invalid", "Bearer abc", identity.ErrUnauthenticated, http.StatusUnauthorized},
		{"provider down", "Bearer abc", identity.ErrUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		handler := Auth(stubProvider{err: tc.err})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("%s: handler must not run", tc.name)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tc.header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestRequirePermission(t *testing.T) {
	handler := RequirePermission(auth.PermLeaveApprove, auth.StaticPermissions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	anon := httptest.NewRecorder()
	handler.ServeHTTP(anon, httptest.NewRequest(http.MethodPost, "/", nil))
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", anon.Code)
	}

	employee := httptest.NewRequest(http.MethodPost, "/", nil)
	employee = employee.WithContext(WithUser(employee.Context(), auth.UserContext{UserID: "u", RoleName: auth.RoleEmployee}))
	denied := httptest.NewRecorder()
	handler.ServeHTTP(denied, employee)
	if denied.Code != http.StatusForbidden || !strings.Contains(denied.Body.String(), "PERMISSION_DENIED") {
		t.Fatalf("expected 403 PERMISSION_DENIED, got %d %s", denied.Code, denied.Body.String())
	}

	manager := httptest.NewRequest(http.MethodPost, "/", nil)
	manager = manager.WithContext(WithUser(manager.Context(), auth.UserContext{UserID: "m", RoleName: auth.RoleManager}))
	allowed := httptest.NewRecorder()
	handler.ServeHTTP(allowed, manager)
	if allowed.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", allowed.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
		if ip := requestctx.GetClientIP(r.Context()); ip != "192.0.2.5" {
			t.Fatalf("expected client ip in context, got %q", ip)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.5:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

type sampleRecorder struct {
	statuses []int
}

func (s *sampleRecorder) Record(status int, _ time.Duration) {
	s.statuses = append(s.statuses, status)
}

func TestLoggerRecordsStatus(t *testing.T) {
	rec := &sampleRecorder{}
	handler := Logger(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusTeapot {
		t.Fatalf("unexpected samples %v", rec.statuses)
	}
}
