package notificationshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/notifications"
	"leavehr/internal/transport/http/middleware"
)

func newRouter(svc *notifications.Service, user *auth.UserContext) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(middleware.WithUser(r.Context(), *user))
			}
			next.ServeHTTP(w, r)
		})
	})
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func TestListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := notifications.New(notifications.NewMemoryStore(), nil)
	require.NoError(t, svc.Create(ctx, "u-1", "leave_submitted", "Leave request", "PTO 2025-03-03"))
	require.NoError(t, svc.Create(ctx, "u-1", "leave_approved", "Leave approved", "PTO 2025-03-03"))
	require.NoError(t, svc.Create(ctx, "u-2", "leave_submitted", "Leave request", "other"))

	router := newRouter(svc, &auth.UserContext{UserID: "u-1", RoleName: auth.RoleEmployee})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var env struct {
		Data []notifications.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Leave approved", env.Data[0].Title)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/"+env.Data[0].ID+"/read", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	others, err := svc.List(ctx, "u-2", 10, 0)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/"+others[0].ID+"/read", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "cannot mark another user's notification")
}

func TestRequiresUser(t *testing.T) {
	router := newRouter(notifications.New(notifications.NewMemoryStore(), nil), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
