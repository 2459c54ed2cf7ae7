package leave

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Validation rule codes returned to callers.
const (
	CodePastDate               = "PAST_DATE"
	CodeInvalidRange           = "INVALID_RANGE"
	CodeOverlap                = "OVERLAP"
	CodeMaxConsecutiveExceeded = "MAX_CONSECUTIVE_EXCEEDED"
	CodeMaxAnnualExceeded      = "MAX_ANNUAL_EXCEEDED"
	CodeNoWorkingDays          = "NO_WORKING_DAYS"
)

const (
	AuditLeaveRequested       = "LEAVE_REQUESTED"
	AuditLeaveApproved        = "LEAVE_APPROVED"
	AuditLeaveRejected        = "LEAVE_REJECTED"
	AuditLeaveCancelled       = "LEAVE_CANCELLED"
	AuditLeaveBalanceAdjusted = "LEAVE_BALANCE_ADJUSTED"
	AuditLeaveTypeSaved       = "LEAVE_TYPE_SAVED"
	AuditHolidayCreated       = "HOLIDAY_CREATED"
	AuditHolidayDeleted       = "HOLIDAY_DELETED"
)

const (
	reasonInitialAllocation = "Initial allocation"
	reasonMonthlyAccrual    = "Monthly accrual"
	systemApprover          = "system"
)
