package attendancehandler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehr/internal/domain/attendance"
	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/biometric"
	"leavehr/internal/domain/core"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
	"leavehr/internal/transport/http/shared"
)

type People interface {
	EmployeeIDByUserID(ctx context.Context, userID string) (string, error)
	CanAccessEmployee(ctx context.Context, user auth.UserContext, employeeID string) (bool, error)
}

type Handler struct {
	Service    *attendance.Service
	Enrollment *biometric.Service
	People     People
	Perms      middleware.PermissionStore
	// KioskLimit throttles the unauthenticated-by-person kiosk endpoints.
	KioskLimit func(http.Handler) http.Handler
}

func NewHandler(service *attendance.Service, enrollment *biometric.Service, people People, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Enrollment: enrollment, People: people, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	kiosk := h.KioskLimit
	if kiosk == nil {
		kiosk = func(next http.Handler) http.Handler { return next }
	}
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFingerprintManage, h.Perms)).Post("/fingerprint/enroll", h.handleEnroll)
		r.With(middleware.RequirePermission(auth.PermFingerprintManage, h.Perms)).Get("/fingerprint/{employeeID}", h.handleEnrollmentStatus)
		r.With(middleware.RequirePermission(auth.PermFingerprintManage, h.Perms)).Put("/fingerprint/{employeeID}", h.handleUpdateEnrollment)
		r.With(middleware.RequirePermission(auth.PermFingerprintManage, h.Perms)).Delete("/fingerprint/{employeeID}", h.handleRemoveEnrollment)
		r.With(middleware.RequirePermission(auth.PermAttendanceKiosk, h.Perms), kiosk).Post("/kiosk/identify", h.handleKioskIdentify)
		r.With(middleware.RequirePermission(auth.PermAttendanceKiosk, h.Perms), kiosk).Post("/kiosk/pin", h.handleKioskPin)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/records", h.handleCreateRecord)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/records", h.handleListRecords)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/records/{recordID}", h.handleGetRecord)
	})
}

type enrollPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Template   string `json:"template"`
}

type templatePayload struct {
	Template string `json:"template"`
}

type pinPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Pin        string `json:"pin" validate:"required,min=4,max=8"`
}

type recordPayload struct {
	EmployeeID   string     `json:"employeeId" validate:"required"`
	Date         string     `json:"date"`
	Status       string     `json:"status" validate:"omitempty,oneof=PRESENT ABSENT HALF_DAY LEAVE"`
	CheckInTime  *time.Time `json:"checkInTime"`
	CheckOutTime *time.Time `json:"checkOutTime"`
	Method       string     `json:"method" validate:"omitempty,oneof=FINGERPRINT MANUAL PIN"`
	Template     string     `json:"template"`
	Verify       bool       `json:"verify"`
	Notes        string     `json:"notes" validate:"max=1000"`
}

// decodeOptional reads a body that may legitimately be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	v := shared.NewValidator()
	v.Decode(r, dst)
	return !v.Reject(w, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload enrollPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	enrollment, err := h.Enrollment.Enroll(r.Context(), user.UserID, payload.EmployeeID, payload.Template)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, enrollment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEnrollmentStatus(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.Enrollment.Status(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, enrollment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEnrollment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload templatePayload
	if !decodeOptional(w, r, &payload) {
		return
	}

	enrollment, err := h.Enrollment.UpdateEnrollment(r.Context(), user.UserID, chi.URLParam(r, "employeeID"), payload.Template)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, enrollment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemoveEnrollment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Enrollment.RemoveEnrollment(r.Context(), user.UserID, chi.URLParam(r, "employeeID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "removed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleKioskIdentify(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if !decodeOptional(w, r, &payload) {
		return
	}

	result, err := h.Service.IdentifyAndMark(r.Context(), payload.Template)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleKioskPin(w http.ResponseWriter, r *http.Request) {
	var payload pinPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.MarkWithPin(r.Context(), payload.EmployeeID, payload.Pin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	var date time.Time
	if payload.Date != "" {
		date, _ = v.Date("date", payload.Date)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Service.CreateAttendance(r.Context(), attendance.CreateInput{
		EmployeeID:   payload.EmployeeID,
		Date:         date,
		Status:       payload.Status,
		CheckInTime:  payload.CheckInTime,
		CheckOutTime: payload.CheckOutTime,
		Method:       payload.Method,
		Template:     payload.Template,
		Verify:       payload.Verify,
		Notes:        strings.TrimSpace(payload.Notes),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 500)
	v := shared.NewValidator()
	from, err := shared.ParseOptionalDay(r.URL.Query().Get("from"))
	if err != nil {
		v.Add("from", "must be a valid date in YYYY-MM-DD format")
	}
	to, err := shared.ParseOptionalDay(r.URL.Query().Get("to"))
	if err != nil {
		v.Add("to", "must be a valid date in YYYY-MM-DD format")
	}
	if from != nil && to != nil {
		v.DateOrder("from", *from, "to", *to)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	filter := attendance.Filter{Limit: page.Limit, Offset: page.Offset}
	if from != nil {
		filter.From = *from
	}
	if to != nil {
		filter.To = *to
	}
	requested := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	if requested != "" || !user.IsPrivileged() {
		employeeID, err := h.resolveEmployee(r.Context(), user, requested)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.EmployeeID = employeeID
	}

	records, err := h.Service.ListRecords(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rec, err := h.Service.GetRecord(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.resolveEmployee(r.Context(), user, rec.EmployeeID); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

var errForbidden = errors.New("not allowed to view this employee")

func (h *Handler) resolveEmployee(ctx context.Context, user auth.UserContext, requested string) (string, error) {
	if requested == "" {
		id, err := h.People.EmployeeIDByUserID(ctx, user.UserID)
		if errors.Is(err, core.ErrEmployeeNotFound) {
			return "", attendance.ErrEmployeeNotFound
		}
		return id, err
	}
	allowed, err := h.People.CanAccessEmployee(ctx, user, requested)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", errForbidden
	}
	return requested, nil
}
