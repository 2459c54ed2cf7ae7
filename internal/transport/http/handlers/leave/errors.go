package leavehandler

import (
	"errors"
	"log/slog"
	"net/http"

	"leavehr/internal/domain/core"
	"leavehr/internal/domain/leave"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
)

// writeError maps leave engine errors onto the response envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var validation *leave.ValidationError
	if errors.As(err, &validation) {
		api.FailWithDetails(w, http.StatusBadRequest, "VALIDATION", "leave request is invalid",
			map[string]any{"violations": validation.Violations}, requestID)
		return
	}
	var insufficient *leave.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "insufficient leave balance",
			map[string]any{"available": insufficient.Available, "requested": insufficient.Requested}, requestID)
		return
	}

	switch {
	case errors.Is(err, leave.ErrInvalidInput), errors.Is(err, leave.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "VALIDATION", err.Error(), requestID)
	case errors.Is(err, leave.ErrNotFound), errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "NOT_FOUND", err.Error(), requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "PERMISSION_DENIED", "not allowed to act on this leave record", requestID)
	case errors.Is(err, leave.ErrInvalidState), errors.Is(err, leave.ErrInactiveLeaveType), errors.Is(err, leave.ErrInactiveEmployee):
		api.Fail(w, http.StatusConflict, "INVALID_STATE", err.Error(), requestID)
	case errors.Is(err, leave.ErrConflict), errors.Is(err, leave.ErrDuplicateLeaveType):
		api.Fail(w, http.StatusConflict, "CONFLICT", err.Error(), requestID)
	default:
		slog.Error("leave request failed", "path", r.URL.Path, "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "INTERNAL", "internal error", requestID)
	}
}
