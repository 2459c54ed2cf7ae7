package leavehandler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/core"
	"leavehr/internal/domain/leave"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
	"leavehr/internal/transport/http/shared"
)

// People answers who the caller is and whom they may see.
type People interface {
	EmployeeIDByUserID(ctx context.Context, userID string) (string, error)
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
	CanAccessEmployee(ctx context.Context, user auth.UserContext, employeeID string) (bool, error)
}

// Jobs runs accrual and carry-over through the job history.
type Jobs interface {
	RunAccrual(ctx context.Context, month, year int) (leave.AccrualSummary, error)
	RunCarryover(ctx context.Context, year int) (leave.CarryoverSummary, error)
}

type Handler struct {
	Service *leave.Service
	People  People
	Perms   middleware.PermissionStore
	Jobs    Jobs
}

func NewHandler(service *leave.Service, people People, perms middleware.PermissionStore, jobsSvc Jobs) *Handler {
	return &Handler{Service: service, People: people, Perms: perms, Jobs: jobsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/types", h.handleCreateType)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Put("/types/{typeID}", h.handleUpdateType)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/accrual/run", h.handleRunAccrual)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/carryover/run", h.handleRunCarryover)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/statement", h.handleStatement)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/validate", h.handleValidateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.ListTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload leave.LeaveType
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateType(r.Context(), user, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload leave.LeaveType
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	payload.ID = chi.URLParam(r, "typeID")

	updated, err := h.Service.UpdateType(r.Context(), user, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Service.ListHolidays(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

type holidayPayload struct {
	Date      string `json:"date" validate:"required"`
	Name      string `json:"name" validate:"required,max=128"`
	Recurring bool   `json:"recurring"`
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload holidayPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	var date time.Time
	if payload.Date != "" {
		date, _ = v.Date("date", payload.Date)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateHoliday(r.Context(), user, leave.Holiday{
		Date:      date,
		Name:      strings.TrimSpace(payload.Name),
		Recurring: payload.Recurring,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.DeleteHoliday(r.Context(), user, chi.URLParam(r, "holidayID")); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

// resolveEmployee picks the employee a read targets: the caller by default,
// otherwise someone the caller may see.
func (h *Handler) resolveEmployee(ctx context.Context, user auth.UserContext, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return h.ownEmployeeID(ctx, user)
	}
	allowed, err := h.People.CanAccessEmployee(ctx, user, requested)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", leave.ErrForbidden
	}
	return requested, nil
}

func (h *Handler) ownEmployeeID(ctx context.Context, user auth.UserContext) (string, error) {
	id, err := h.People.EmployeeIDByUserID(ctx, user.UserID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		return "", leave.ErrEmployeeNotFound
	}
	return id, err
}
