package attendancehandler

import (
	"errors"
	"log/slog"
	"net/http"

	"leavehr/internal/domain/attendance"
	"leavehr/internal/domain/biometric"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var noMatch *attendance.NoMatchError
	if errors.As(err, &noMatch) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "NO_MATCH", "no enrolled fingerprint matched",
			map[string]any{"bestConfidence": noMatch.Best, "candidates": noMatch.Candidates}, requestID)
		return
	}
	var low *attendance.LowConfidenceError
	if errors.As(err, &low) {
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "LOW_CONFIDENCE", "fingerprint did not match the enrollment",
			map[string]any{"confidence": low.Score, "threshold": low.Threshold}, requestID)
		return
	}

	switch {
	case errors.Is(err, attendance.ErrNoMatch):
		api.Fail(w, http.StatusUnprocessableEntity, "NO_MATCH", "no enrolled fingerprint matched", requestID)
	case errors.Is(err, attendance.ErrLowConfidence):
		api.Fail(w, http.StatusUnprocessableEntity, "LOW_CONFIDENCE", "fingerprint did not match the enrollment", requestID)
	case errors.Is(err, attendance.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "VALIDATION", err.Error(), requestID)
	case errors.Is(err, attendance.ErrAlreadyRecorded):
		api.Fail(w, http.StatusConflict, "ALREADY_RECORDED", "attendance already recorded for today", requestID)
	case errors.Is(err, attendance.ErrInvalidPin):
		api.Fail(w, http.StatusUnauthorized, "INVALID_PIN", "invalid employee or pin", requestID)
	case errors.Is(err, biometric.ErrAlreadyEnrolled):
		api.Fail(w, http.StatusConflict, "ALREADY_ENROLLED", err.Error(), requestID)
	case errors.Is(err, biometric.ErrNotEnrolled):
		api.Fail(w, http.StatusConflict, "NOT_ENROLLED", err.Error(), requestID)
	case errors.Is(err, biometric.ErrDeviceFailure):
		slog.Warn("fingerprint device failure", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusBadGateway, "DEVICE_FAILURE", "fingerprint device failure", requestID)
	case errors.Is(err, biometric.ErrPersistFailed):
		slog.Error("fingerprint enrollment not persisted", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "PERSIST_FAILED", err.Error(), requestID)
	case errors.Is(err, attendance.ErrEmployeeNotFound), errors.Is(err, biometric.ErrEmployeeNotFound), errors.Is(err, attendance.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "NOT_FOUND", err.Error(), requestID)
	case errors.Is(err, attendance.ErrEmployeeInactive), errors.Is(err, biometric.ErrEmployeeInactive):
		api.Fail(w, http.StatusConflict, "INVALID_STATE", err.Error(), requestID)
	case errors.Is(err, errForbidden):
		api.Fail(w, http.StatusForbidden, "PERMISSION_DENIED", err.Error(), requestID)
	default:
		slog.Error("attendance request failed", "path", r.URL.Path, "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "INTERNAL", "internal error", requestID)
	}
}
