package corehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/core"
	"leavehr/internal/transport/http/middleware"
)

type recordedAudit struct {
	actions []string
}

func (r *recordedAudit) Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error {
	r.actions = append(r.actions, action)
	return nil
}

var testUsers = map[string]auth.UserContext{
	"hr":  {UserID: "u-hr", RoleName: auth.RoleHR},
	"mgr": {UserID: "u-mgr", RoleName: auth.RoleManager},
	"emp": {UserID: "u-emp", RoleName: auth.RoleEmployee},
}

type testServer struct {
	router http.Handler
	store  *core.MemoryStore
	audit  *recordedAudit
	ids    map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := core.NewMemoryStore()
	ids := map[string]string{}
	for _, p := range []struct{ key, manager string }{{"hr", ""}, {"mgr", ""}, {"emp", "mgr"}} {
		id, err := store.CreateEmployee(context.Background(), core.Employee{UserID: testUsers[p.key].UserID, FirstName: p.key, ManagerID: ids[p.manager], Role: testUsers[p.key].RoleName, Active: true})
		require.NoError(t, err)
		ids[p.key] = id
	}
	rec := &recordedAudit{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := testUsers[r.Header.Get("X-Test-User")]; ok {
				r = r.WithContext(middleware.WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})
	NewHandler(core.NewService(store), auth.StaticPermissions{}, rec).RegisterRoutes(r)
	return &testServer{router: r, store: store, audit: rec, ids: ids}
}

func (s *testServer) do(who, method, path string, body any) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("X-Test-User", who)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestMeReturnsLinkedEmployee(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("emp", http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data struct {
			Employee *core.Employee `json:"employee"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Data.Employee)
	assert.Equal(t, s.ids["emp"], env.Data.Employee.ID)
}

func TestManagerSeesOnlyTeam(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("mgr", http.MethodGet, "/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data []core.Employee `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)

	assert.Equal(t, http.StatusForbidden, s.do("mgr", http.MethodGet, "/employees/"+s.ids["hr"], nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do("emp", http.MethodGet, "/employees", nil).Code)
}

func TestCreateEmployeeAndSetPin(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("hr", http.MethodPost, "/employees", map[string]string{"firstName": "Grace", "managerId": s.ids["mgr"]})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	id := env.Data["id"]

	emp, err := s.store.GetEmployee(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, emp.Active)
	assert.Equal(t, auth.RoleEmployee, emp.Role)

	assert.Equal(t, http.StatusBadRequest, s.do("hr", http.MethodPut, "/employees/"+id+"/pin", map[string]string{"pin": "12a4"}).Code)
	assert.Equal(t, http.StatusOK, s.do("hr", http.MethodPut, "/employees/"+id+"/pin", map[string]string{"pin": "4821"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do("hr", http.MethodPut, "/employees/missing/pin", map[string]string{"pin": "4821"}).Code)
	assert.Equal(t, []string{"core.employee.create", "core.employee.pin_set"}, s.audit.actions)

	rec = s.do("hr", http.MethodPost, "/employees", map[string]string{"firstName": "Dup", "userId": "u-emp"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do("hr", http.MethodPost, "/employees", map[string]string{"lastName": "NoFirst"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
