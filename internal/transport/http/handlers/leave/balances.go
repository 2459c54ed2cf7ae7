package leavehandler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"leavehr/internal/domain/leave"
	"leavehr/internal/transport/http/api"
	"leavehr/internal/transport/http/middleware"
	"leavehr/internal/transport/http/shared"
)

type balanceView struct {
	leave.Balance
	Available decimal.Decimal `json:"available"`
}

type adjustPayload struct {
	EmployeeID  string          `json:"employeeId" validate:"required"`
	LeaveTypeID string          `json:"leaveTypeId" validate:"required"`
	Year        int             `json:"year" validate:"required,gte=2000,lte=2100"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason" validate:"required,max=500"`
}

type accrualPayload struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,gte=2000,lte=2100"`
}

type carryoverPayload struct {
	Year int `json:"year" validate:"required,gte=2000,lte=2100"`
}

// queryYear reads ?year=, zero when absent.
func queryYear(r *http.Request, v *shared.Validator) int {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return 0
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		v.Add("year", "must be a year between 2000 and 2100")
		return 0
	}
	return year
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	v := shared.NewValidator()
	year := queryYear(r, v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	employeeID, err := h.resolveEmployee(r.Context(), user, r.URL.Query().Get("employeeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	balances, err := h.Service.ListBalances(r.Context(), employeeID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceView{Balance: b, Available: b.Available()})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload adjustPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if payload.Amount.IsZero() && !v.HasIssues() {
		v.Add("amount", "must not be zero")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	balance, err := h.Service.AdjustBalance(r.Context(), user, payload.EmployeeID, payload.LeaveTypeID, payload.Year, payload.Amount, strings.TrimSpace(payload.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, balanceView{Balance: balance, Available: balance.Available()}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	var payload accrualPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	summary, err := h.Jobs.RunAccrual(r.Context(), payload.Month, payload.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunCarryover(w http.ResponseWriter, r *http.Request) {
	var payload carryoverPayload
	v := shared.NewValidator()
	v.Decode(r, &payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	summary, err := h.Jobs.RunCarryover(r.Context(), payload.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	v := shared.NewValidator()
	year := queryYear(r, v)
	if year == 0 && !v.HasIssues() {
		year = h.Service.Today().Year()
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	employeeID, err := h.resolveEmployee(r.Context(), user, r.URL.Query().Get("employeeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	emp, err := h.People.GetEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pdf, err := h.Service.Statement(r.Context(), employeeID, emp.FullName(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-statement-%s-%d.pdf", employeeID, year))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
