package corehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/core"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
	"leavehr/internal/transport/http/shared"
)

type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error
}

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
	Audit   Auditor
}

func NewHandler(service *core.Service, perms middleware.PermissionStore, auditor Auditor) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}/pin", h.handleSetPin)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var employee *core.Employee
	if id, err := h.Service.EmployeeIDByUserID(r.Context(), user.UserID); err == nil {
		if emp, err := h.Service.GetEmployee(r.Context(), id); err == nil {
			employee = &emp
		}
	} else if !errors.Is(err, core.ErrEmployeeNotFound) {
		writeError(w, r, err)
		return
	}

	api.Success(w, map[string]any{
		"user": map[string]string{
			"id":   user.UserID,
			"role": user.RoleName,
		},
		"employee": employee,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employees, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	visible := make([]core.Employee, 0, len(employees))
	for _, emp := range employees {
		allowed, err := h.Service.CanAccessEmployee(r.Context(), user, emp.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if allowed {
			visible = append(visible, emp)
		}
	}
	api.Success(w, visible, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	emp, err := h.Service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	allowed, err := h.Service.CanAccessEmployee(r.Context(), user, employeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "PERMISSION_DENIED", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

type employeePayload struct {
	UserID    string `json:"userId"`
	ManagerID string `json:"managerId"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,oneof=admin hr manager employee"`
	Active    *bool  `json:"active"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload employeePayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	emp := core.Employee{
		UserID:    strings.TrimSpace(payload.UserID),
		ManagerID: strings.TrimSpace(payload.ManagerID),
		FirstName: strings.TrimSpace(payload.FirstName),
		LastName:  strings.TrimSpace(payload.LastName),
		Email:     strings.TrimSpace(payload.Email),
		Role:      payload.Role,
		Active:    payload.Active == nil || *payload.Active,
	}
	if emp.ManagerID != "" {
		if _, err := h.Service.GetEmployee(r.Context(), emp.ManagerID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	id, err := h.Service.CreateEmployee(r.Context(), emp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	emp.ID = id
	h.record(r.Context(), user.UserID, "core.employee.create", id, nil, emp)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

type pinPayload struct {
	Pin string `json:"pin" validate:"required"`
}

func (h *Handler) handleSetPin(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload pinPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if _, err := h.Service.GetEmployee(r.Context(), employeeID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.SetPin(r.Context(), employeeID, payload.Pin); err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r.Context(), user.UserID, "core.employee.pin_set", employeeID, nil, nil)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) record(ctx context.Context, actorID, action, employeeID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(ctx, actorID, action, "employee", employeeID, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "employeeId", employeeID, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "NOT_FOUND", "employee not found", requestID)
	case errors.Is(err, core.ErrDuplicateUser):
		api.Fail(w, http.StatusConflict, "CONFLICT", err.Error(), requestID)
	case errors.Is(err, core.ErrInvalidPin):
		api.Fail(w, http.StatusBadRequest, "VALIDATION", err.Error(), requestID)
	default:
		slog.Error("employee request failed", "path", r.URL.Path, "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "INTERNAL", "internal error", requestID)
	}
}
