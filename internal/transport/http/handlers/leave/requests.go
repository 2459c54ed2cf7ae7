package leavehandler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/leave"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
	"leavehr/internal/transport/http/shared"
)

type requestPayload struct {
	EmployeeID  string `json:"employeeId"`
	LeaveTypeID string `json:"leaveTypeId" validate:"required"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	Reason      string `json:"reason" validate:"max=1000"`
}

type decisionPayload struct {
	Comments string `json:"comments" validate:"max=1000"`
}

func (p requestPayload) dates(v *shared.Validator) (time.Time, time.Time) {
	var start, end time.Time
	if p.StartDate != "" {
		start, _ = v.Date("startDate", p.StartDate)
	}
	if p.EndDate != "" {
		end, _ = v.Date("endDate", p.EndDate)
	}
	return start, end
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 500)
	filter := leave.RequestFilter{
		Status: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	requested := r.URL.Query().Get("employeeId")
	switch {
	case requested != "":
		employeeID, err := h.resolveEmployee(r.Context(), user, requested)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.EmployeeID = employeeID
	case user.IsPrivileged():
	case user.RoleName == auth.RoleManager && r.URL.Query().Get("scope") == "team":
		managerID, err := h.ownEmployeeID(r.Context(), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.ManagerEmployeeID = managerID
	default:
		employeeID, err := h.ownEmployeeID(r.Context(), user)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.EmployeeID = employeeID
	}

	requests, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Service.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.resolveEmployee(r.Context(), user, req.EmployeeID); err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload requestPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	start, end := payload.dates(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), user, leave.CreateInput{
		EmployeeID:  strings.TrimSpace(payload.EmployeeID),
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      strings.TrimSpace(payload.Reason),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// handleValidateRequest reports the days a request would take without
// creating it.
func (h *Handler) handleValidateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload requestPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	start, end := payload.dates(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID, err := h.resolveEmployee(r.Context(), user, payload.EmployeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := h.Service.ValidateLeaveRequest(r.Context(), employeeID, payload.LeaveTypeID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, map[string]any{"employeeId": employeeID, "days": days}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.Service.ApproveRequest)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.Service.RejectRequest)
}

type decideFunc func(ctx context.Context, user auth.UserContext, requestID, comments string) (leave.LeaveRequest, error)

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, decide decideFunc) {
	user, _ := middleware.GetUser(r.Context())
	var payload decisionPayload
	if r.ContentLength != 0 {
		v := shared.NewValidator()
		v.Decode(r, &payload)
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
	}

	updated, err := decide(r.Context(), user, chi.URLParam(r, "requestID"), strings.TrimSpace(payload.Comments))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	updated, err := h.Service.CancelRequest(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}
