package attendancehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavehr/internal/domain/attendance"
	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/biometric"
	"leavehr/internal/domain/core"
	"leavehr/internal/platform/device"
	"leavehr/internal/transport/http/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

var testUsers = map[string]auth.UserContext{
	"hr":    {UserID: "u-hr", RoleName: auth.RoleHR},
	"mgr":   {UserID: "u-mgr", RoleName: auth.RoleManager},
	"emp":   {UserID: "u-emp", RoleName: auth.RoleEmployee},
	"oth":   {UserID: "u-oth", RoleName: auth.RoleEmployee},
	"kiosk": {UserID: "u-kiosk", RoleName: auth.RoleKiosk},
}

type testServer struct {
	router    http.Handler
	directory *core.MemoryStore
	people    *core.Service
	emp       map[string]string
	clock     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	s := &testServer{directory: core.NewMemoryStore(), emp: map[string]string{}, clock: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
	for _, p := range []struct{ key, manager string }{{"hr", ""}, {"mgr", ""}, {"emp", "mgr"}, {"oth", ""}} {
		user := testUsers[p.key]
		id, err := s.directory.CreateEmployee(ctx, core.Employee{UserID: user.UserID, FirstName: p.key, LastName: "Tester", Role: user.RoleName, ManagerID: s.emp[p.manager], Active: true})
		require.NoError(t, err)
		s.emp[p.key] = id
	}

	s.people = core.NewService(s.directory)
	enrollment := biometric.NewService(s.directory, device.NewSimulatedSource("zk_sensor"), nil)
	enrollment.Now = func() time.Time { return s.clock }
	matcher := attendance.NewMatcher(biometric.NewAutoComparator(), attendance.DefaultThreshold, attendance.StrategyBest)
	svc := attendance.NewService(attendance.NewMemoryStore(), s.directory, matcher, enrollment, nil)
	svc.Now = func() time.Time { return s.clock }
	h := NewHandler(svc, enrollment, s.people, auth.StaticPermissions{})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := testUsers[r.Header.Get("X-Test-User")]; ok {
				r = r.WithContext(middleware.WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})
	h.RegisterRoutes(r)
	s.router = r
	return s
}

func (s *testServer) do(t *testing.T, who, method, path string, body any) (int, envelope) {
	t.Helper()
	reader := bytes.NewReader(nil)
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("X-Test-User", who)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec.Code, env
}

func TestEnrollmentLifecycle(t *testing.T) {
	s := newTestServer(t)
	path := "/attendance/fingerprint/" + s.emp["emp"]

	code, env := s.do(t, "emp", http.MethodPost, "/attendance/fingerprint/enroll", map[string]string{"employeeId": s.emp["emp"]})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, "hr", http.MethodPost, "/attendance/fingerprint/enroll", map[string]string{
		"employeeId": s.emp["emp"],
		"template":   "zk_sensor_fingerprint_employee_1",
	})
	require.Equal(t, http.StatusCreated, code, "body: %+v", env.Error)
	var enrolled biometric.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrolled))
	assert.True(t, enrolled.Enrolled)

	code, env = s.do(t, "hr", http.MethodPost, "/attendance/fingerprint/enroll", map[string]string{"employeeId": s.emp["emp"]})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_ENROLLED", env.Error.Code)

	// An empty body captures a fresh template from the device.
	code, env = s.do(t, "hr", http.MethodPut, path, nil)
	require.Equal(t, http.StatusOK, code, "body: %+v", env.Error)

	code, _ = s.do(t, "hr", http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, "hr", http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code)
	var status biometric.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.Enrolled)

	code, env = s.do(t, "hr", http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NOT_ENROLLED", env.Error.Code)

	code, env = s.do(t, "hr", http.MethodGet, "/attendance/fingerprint/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestKioskIdentifyMarksAttendance(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.directory.SaveFingerprint(context.Background(), s.emp["emp"], "zk_sensor_fingerprint_employee_1", s.clock))

	code, _ := s.do(t, "emp", http.MethodPost, "/attendance/kiosk/identify", map[string]string{"template": "zk_sensor_fingerprint_kiosk_1"})
	assert.Equal(t, http.StatusForbidden, code, "employees cannot drive the kiosk")

	code, env := s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/identify", map[string]string{"template": "zk_sensor_fingerprint_kiosk_1"})
	require.Equal(t, http.StatusOK, code, "body: %+v", env.Error)
	var first attendance.MarkResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, s.emp["emp"], first.EmployeeID)
	assert.Equal(t, attendance.ActionCheckIn, first.Action)
	assert.Equal(t, "emp Tester", first.EmployeeName)

	s.clock = s.clock.Add(8 * time.Hour)
	code, env = s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/identify", map[string]string{"template": "zk_sensor_fingerprint_kiosk_2"})
	require.Equal(t, http.StatusOK, code)
	var second attendance.MarkResult
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, attendance.ActionCheckOut, second.Action)

	code, env = s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/identify", map[string]string{"template": "zk_sensor_fingerprint_kiosk_3"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_RECORDED", env.Error.Code)
}

func TestKioskNoMatchReportsBestScore(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.directory.SaveFingerprint(context.Background(), s.emp["emp"], "dp_reader_fingerprint_employee_1", s.clock))

	code, env := s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/identify", map[string]string{"template": "zk_sensor_fingerprint_kiosk_1"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_MATCH", env.Error.Code)
	var details struct {
		BestConfidence float64 `json:"bestConfidence"`
		Candidates     int     `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.InDelta(t, 0.1, details.BestConfidence, 1e-9)
	assert.Equal(t, 1, details.Candidates)
}

func TestKioskPin(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.people.SetPin(context.Background(), s.emp["oth"], "4821"))

	code, env := s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/pin", map[string]string{"employeeId": s.emp["oth"], "pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_PIN", env.Error.Code)

	code, env = s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/pin", map[string]string{"employeeId": s.emp["oth"]})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION", env.Error.Code)

	code, env = s.do(t, "kiosk", http.MethodPost, "/attendance/kiosk/pin", map[string]string{"employeeId": s.emp["oth"], "pin": "4821"})
	require.Equal(t, http.StatusOK, code, "body: %+v", env.Error)
	var result attendance.MarkResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, attendance.MethodPIN, result.Record.VerificationMethod)
	assert.Nil(t, result.Record.ConfidenceScore)
}

func TestRecordsCreateAndVisibility(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.directory.SaveFingerprint(context.Background(), s.emp["emp"], "zk_sensor_fingerprint_employee_1", s.clock))

	code, env := s.do(t, "hr", http.MethodPost, "/attendance/records", map[string]any{
		"employeeId": s.emp["emp"],
		"verify":     true,
		"template":   "dp_reader_fingerprint_kiosk_1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "LOW_CONFIDENCE", env.Error.Code)

	code, env = s.do(t, "hr", http.MethodPost, "/attendance/records", map[string]any{
		"employeeId": s.emp["emp"],
		"date":       "2025-03-03",
		"verify":     true,
		"template":   "zk_sensor_fingerprint_kiosk_1",
	})
	require.Equal(t, http.StatusCreated, code, "body: %+v", env.Error)
	var rec attendance.Record
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, attendance.MethodFingerprint, rec.VerificationMethod)

	code, env = s.do(t, "hr", http.MethodPost, "/attendance/records", map[string]any{"employeeId": s.emp["emp"], "status": "WFH"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, "emp", http.MethodGet, "/attendance/records", nil)
	require.Equal(t, http.StatusOK, code)
	var own []attendance.Record
	require.NoError(t, json.Unmarshal(env.Data, &own))
	assert.Len(t, own, 1)

	code, _ = s.do(t, "mgr", http.MethodGet, "/attendance/records/"+rec.ID, nil)
	assert.Equal(t, http.StatusOK, code, "managers see their reports")

	code, env = s.do(t, "oth", http.MethodGet, "/attendance/records/"+rec.ID, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "PERMISSION_DENIED", env.Error.Code)

	code, _ = s.do(t, "oth", http.MethodGet, "/attendance/records?employeeId="+s.emp["emp"], nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, "hr", http.MethodGet, "/attendance/records?from=2025-03-05&to=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
