package leave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrForbidden           = errors.New("permission denied")
	ErrConflict            = errors.New("concurrent modification")
	ErrInactiveLeaveType   = errors.New("leave type inactive")
	ErrInactiveEmployee    = errors.New("employee inactive")
	ErrDuplicateLeaveType  = errors.New("leave type name already exists")
	ErrInvalidPeriod       = errors.New("invalid accrual period")
	ErrInvalidInput        = errors.New("invalid input")

	ErrEmployeeNotFound  = fmt.Errorf("employee %w", ErrNotFound)
	ErrLeaveTypeNotFound = fmt.Errorf("leave type %w", ErrNotFound)
	ErrRequestNotFound   = fmt.Errorf("leave request %w", ErrNotFound)
	ErrBalanceNotFound   = fmt.Errorf("leave balance %w", ErrNotFound)
	ErrHolidayNotFound   = fmt.Errorf("holiday %w", ErrNotFound)
)

type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries every rule a request broke.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	codes := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		codes = append(codes, v.Code)
	}
	return "leave request invalid: " + strings.Join(codes, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Has(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
