package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/core"
)

// Directory resolves people around a request: who an employee is, who may decide for them.
type Directory interface {
	EmployeeIDByUserID(ctx context.Context, userID string) (string, error)
	UserIDForEmployee(ctx context.Context, employeeID string) (string, error)
	ApproverUserIDs(ctx context.Context, employeeID string) ([]string, error)
	ManagesEmployee(ctx context.Context, managerUserID, employeeID string) (bool, error)
}

type Notifier interface {
	Create(ctx context.Context, userID, kind, title, body string) error
}

type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Notify    Notifier
	Audit     Auditor
	Now       func() time.Time
}

func NewService(store StoreAPI, directory Directory, notify Notifier, audit Auditor) *Service {
	return &Service{Store: store, Directory: directory, Notify: notify, Audit: audit, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Today is the current date in the service clock.
func (s *Service) Today() time.Time {
	return DateOnly(s.now())
}

// EmployeeIDForUser maps an authenticated user to their employee record.
func (s *Service) EmployeeIDForUser(ctx context.Context, userID string) (string, error) {
	id, err := s.Directory.EmployeeIDByUserID(ctx, userID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		return "", ErrEmployeeNotFound
	}
	return id, err
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return s.Store.ListTypes(ctx)
}

func (s *Service) GetType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	return s.Store.GetType(ctx, leaveTypeID)
}

func (s *Service) CreateType(ctx context.Context, user auth.UserContext, payload LeaveType) (LeaveType, error) {
	if !user.IsPrivileged() {
		return LeaveType{}, ErrForbidden
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := checkType(payload); err != nil {
		return LeaveType{}, err
	}
	id, err := s.Store.CreateType(ctx, payload)
	if err != nil {
		return LeaveType{}, err
	}
	payload.ID = id
	s.record(ctx, user.UserID, AuditLeaveTypeSaved, "leave_type", id, nil, payload)
	return payload, nil
}

func (s *Service) UpdateType(ctx context.Context, user auth.UserContext, payload LeaveType) (LeaveType, error) {
	if !user.IsPrivileged() {
		return LeaveType{}, ErrForbidden
	}
	before, err := s.Store.GetType(ctx, payload.ID)
	if err != nil {
		return LeaveType{}, err
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := checkType(payload); err != nil {
		return LeaveType{}, err
	}
	if err := s.Store.UpdateType(ctx, payload); err != nil {
		return LeaveType{}, err
	}
	payload.CreatedAt = before.CreatedAt
	s.record(ctx, user.UserID, AuditLeaveTypeSaved, "leave_type", payload.ID, before, payload)
	return payload, nil
}

func checkType(t LeaveType) error {
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case t.AccrualRate.IsNegative():
		return fmt.Errorf("%w: accrual rate must not be negative", ErrInvalidInput)
	case t.MaxDays != nil && t.MaxDays.IsNegative():
		return fmt.Errorf("%w: max days must not be negative", ErrInvalidInput)
	case t.MaxConsecutiveDays != nil && *t.MaxConsecutiveDays < 1:
		return fmt.Errorf("%w: max consecutive days must be at least 1", ErrInvalidInput)
	case t.CarryOver.MaxDays != nil && t.CarryOver.MaxDays.IsNegative():
		return fmt.Errorf("%w: carry-over cap must not be negative", ErrInvalidInput)
	case t.CarryOver.ExpiryMonth < 0 || t.CarryOver.ExpiryMonth > 12:
		return fmt.Errorf("%w: carry-over expiry month must be 1-12", ErrInvalidInput)
	case t.CarryOver.ExpiryDay < 0 || t.CarryOver.ExpiryDay > 31:
		return fmt.Errorf("%w: carry-over expiry day must be 1-31", ErrInvalidInput)
	case t.CarryOver.ExpiryDay > 0 && t.CarryOver.ExpiryMonth == 0:
		return fmt.Errorf("%w: carry-over expiry day needs a month", ErrInvalidInput)
	}
	return nil
}

func (s *Service) ListHolidays(ctx context.Context) ([]Holiday, error) {
	return s.Store.ListHolidays(ctx)
}

func (s *Service) CreateHoliday(ctx context.Context, user auth.UserContext, holiday Holiday) (Holiday, error) {
	if !user.IsPrivileged() {
		return Holiday{}, ErrForbidden
	}
	holiday.Name = strings.TrimSpace(holiday.Name)
	if holiday.Name == "" || holiday.Date.IsZero() {
		return Holiday{}, fmt.Errorf("%w: holiday date and name are required", ErrInvalidInput)
	}
	holiday.Date = DateOnly(holiday.Date)
	id, err := s.Store.CreateHoliday(ctx, holiday)
	if err != nil {
		return Holiday{}, err
	}
	holiday.ID = id
	s.record(ctx, user.UserID, AuditHolidayCreated, "holiday", id, nil, holiday)
	return holiday, nil
}

func (s *Service) DeleteHoliday(ctx context.Context, user auth.UserContext, holidayID string) error {
	if !user.IsPrivileged() {
		return ErrForbidden
	}
	if err := s.Store.DeleteHoliday(ctx, holidayID); err != nil {
		return err
	}
	s.record(ctx, user.UserID, AuditHolidayDeleted, "holiday", holidayID, nil, nil)
	return nil
}

func (s *Service) ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	return s.Store.ListBalances(ctx, employeeID, year)
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return s.Store.GetRequest(ctx, requestID)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Store.ListRequests(ctx, filter)
}

// EnsureLeaveBalance returns the balance row for the year, creating it with a
// full year of accrual when it does not exist yet.
func (s *Service) EnsureLeaveBalance(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error) {
	var balance Balance
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		if _, err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		lt, err := tx.GetType(ctx, leaveTypeID)
		if err != nil {
			return err
		}
		balance, err = ensureBalance(ctx, tx, employeeID, lt, year)
		return err
	})
	return balance, err
}

func ensureBalance(ctx context.Context, tx TxStore, employeeID string, lt LeaveType, year int) (Balance, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, employeeID, lt.ID, year)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, ErrBalanceNotFound) {
		return Balance{}, err
	}
	balance = Balance{
		EmployeeID:       employeeID,
		LeaveTypeID:      lt.ID,
		Year:             year,
		Allocated:        lt.AccrualRate.Mul(decimal.NewFromInt(12)),
		AdjustmentReason: reasonInitialAllocation,
	}
	if err := tx.InsertBalance(ctx, &balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// ValidateLeaveRequest reports the business days a range would consume and
// every rule it breaks as a *ValidationError. Nothing is written.
func (s *Service) ValidateLeaveRequest(ctx context.Context, employeeID, leaveTypeID string, start, end time.Time) (decimal.Decimal, error) {
	var days decimal.Decimal
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		lt, err := tx.GetType(ctx, leaveTypeID)
		if err != nil {
			return err
		}
		used := decimal.Zero
		balance, err := tx.GetBalanceForUpdate(ctx, employeeID, leaveTypeID, DateOnly(start).Year())
		switch {
		case err == nil:
			used = balance.Used
		case !errors.Is(err, ErrBalanceNotFound):
			return err
		}
		days, err = s.validate(ctx, tx, employeeID, lt, start, end, used)
		return err
	})
	return days, err
}

func (s *Service) validate(ctx context.Context, tx TxStore, employeeID string, lt LeaveType, start, end time.Time, used decimal.Decimal) (decimal.Decimal, error) {
	holidays, err := tx.ListHolidays(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	days := businessDaysDecimal(start, end, holidays)
	var existing []LeaveRequest
	if !DateOnly(end).Before(DateOnly(start)) {
		existing, err = tx.ActiveRequestsInRange(ctx, employeeID, start, end)
		if err != nil {
			return decimal.Zero, err
		}
	}
	verr := Validate(ValidationInput{
		Today:     s.now(),
		StartDate: start,
		EndDate:   end,
		Days:      days,
		Type:      lt,
		Existing:  existing,
		Used:      used,
	})
	if verr != nil {
		return days, verr
	}
	return days, nil
}

// AdjustBalance applies a signed manual correction. A correction that would
// leave the balance below zero is refused.
func (s *Service) AdjustBalance(ctx context.Context, user auth.UserContext, employeeID, leaveTypeID string, year int, amount decimal.Decimal, reason string) (Balance, error) {
	if !user.IsPrivileged() {
		return Balance{}, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || amount.IsZero() {
		return Balance{}, fmt.Errorf("%w: adjustment needs a non-zero amount and a reason", ErrInvalidInput)
	}
	var before, after Balance
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		if _, err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		lt, err := tx.GetType(ctx, leaveTypeID)
		if err != nil {
			return err
		}
		balance, err := ensureBalance(ctx, tx, employeeID, lt, year)
		if err != nil {
			return err
		}
		before = balance
		balance.Adjustment = balance.Adjustment.Add(amount)
		balance.AdjustmentReason = reason
		if balance.Available().IsNegative() {
			return &InsufficientBalanceError{Available: before.Available(), Requested: amount.Neg()}
		}
		if err := tx.UpdateBalance(ctx, &balance); err != nil {
			return err
		}
		after = balance
		return nil
	})
	if err != nil {
		return Balance{}, err
	}
	s.record(ctx, user.UserID, AuditLeaveBalanceAdjusted, "leave_balance", after.ID, before, after)
	return after, nil
}

func (s *Service) record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actorID, action, entityType, entityID, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func (s *Service) notifyUser(ctx context.Context, userID, kind, title, body string) {
	if s.Notify == nil || userID == "" {
		return
	}
	if err := s.Notify.Create(ctx, userID, kind, title, body); err != nil {
		slog.Warn("leave notification failed", "userId", userID, "kind", kind, "err", err)
	}
}

func (s *Service) notifyEmployee(ctx context.Context, employeeID, kind, title, body string) {
	userID, err := s.Directory.UserIDForEmployee(ctx, employeeID)
	if err != nil {
		slog.Warn("leave notification lookup failed", "employeeId", employeeID, "err", err)
		return
	}
	s.notifyUser(ctx, userID, kind, title, body)
}

func (s *Service) notifyApprovers(ctx context.Context, employeeID, kind, title, body string) {
	userIDs, err := s.Directory.ApproverUserIDs(ctx, employeeID)
	if err != nil {
		slog.Warn("leave approver lookup failed", "employeeId", employeeID, "err", err)
		return
	}
	for _, userID := range userIDs {
		s.notifyUser(ctx, userID, kind, title, body)
	}
}
