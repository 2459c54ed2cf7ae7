package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaveType struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name" validate:"required,max=64"`
	AccrualRate        decimal.Decimal  `json:"accrualRate"`
	RequiresApproval   bool             `json:"requiresApproval"`
	MaxDays            *decimal.Decimal `json:"maxDays,omitempty"`
	MaxConsecutiveDays *int             `json:"maxConsecutiveDays,omitempty" validate:"omitempty,min=1"`
	Active             bool             `json:"active"`
	CarryOver          CarryOverPolicy  `json:"carryOverPolicy"`
	CreatedAt          time.Time        `json:"createdAt"`
}

type Balance struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employeeId"`
	LeaveTypeID      string          `json:"leaveTypeId"`
	Year             int             `json:"year"`
	Allocated        decimal.Decimal `json:"allocated"`
	Used             decimal.Decimal `json:"used"`
	Pending          decimal.Decimal `json:"pending"`
	CarryOver        decimal.Decimal `json:"carryOver"`
	Adjustment       decimal.Decimal `json:"adjustment"`
	AdjustmentReason string          `json:"adjustmentReason"`
	ExpiryDate       *time.Time      `json:"expiryDate,omitempty"`
	Version          int             `json:"version"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Available is allocated + carryOver + adjustment - used - pending.
func (b Balance) Available() decimal.Decimal {
	return b.Allocated.Add(b.CarryOver).Add(b.Adjustment).Sub(b.Used).Sub(b.Pending)
}

type LeaveRequest struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employeeId"`
	LeaveTypeID  string          `json:"leaveTypeId"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      time.Time       `json:"endDate"`
	Days         decimal.Decimal `json:"days"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason"`
	ApprovedBy   string          `json:"approvedBy,omitempty"`
	ApprovalDate *time.Time      `json:"approvalDate,omitempty"`
	Comments     string          `json:"comments"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (r LeaveRequest) Active() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

type Holiday struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Recurring bool      `json:"recurring"`
}

type EmployeeRef struct {
	ID        string
	ManagerID string
	Active    bool
}

type CreateInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

type RequestFilter struct {
	EmployeeID        string
	ManagerEmployeeID string
	Status            string
	Limit             int
	Offset            int
}

type AccrualSummary struct {
	Month            int `json:"month"`
	Year             int `json:"year"`
	EmployeesAccrued int `json:"employeesAccrued"`
	BalancesCredited int `json:"balancesCredited"`
	AlreadyCredited  int `json:"alreadyCredited"`
}

type CarryoverSummary struct {
	Year      int `json:"year"`
	Processed int `json:"processed"`
	Capped    int `json:"capped"`
	Skipped   int `json:"skipped"`
}
