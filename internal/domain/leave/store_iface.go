package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	// WithTx runs fn atomically. Nothing fn wrote is visible unless it returns nil.
	WithTx(ctx context.Context, fn func(tx TxStore) error) error

	ListTypes(ctx context.Context) ([]LeaveType, error)
	GetType(ctx context.Context, leaveTypeID string) (LeaveType, error)
	CreateType(ctx context.Context, payload LeaveType) (string, error)
	UpdateType(ctx context.Context, payload LeaveType) error
	ListHolidays(ctx context.Context) ([]Holiday, error)
	CreateHoliday(ctx context.Context, holiday Holiday) (string, error)
	DeleteHoliday(ctx context.Context, holidayID string) error
	ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error)
	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
}

// TxStore is the view of the store inside a transaction. Methods named
// ForUpdate take row locks that are held until the transaction ends.
type TxStore interface {
	LockEmployee(ctx context.Context, employeeID string) (EmployeeRef, error)
	ActiveEmployeeIDs(ctx context.Context) ([]string, error)
	GetType(ctx context.Context, leaveTypeID string) (LeaveType, error)
	ListTypes(ctx context.Context) ([]LeaveType, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	GetRequestForUpdate(ctx context.Context, requestID string) (LeaveRequest, error)
	ActiveRequestsInRange(ctx context.Context, employeeID string, start, end time.Time) ([]LeaveRequest, error)
	InsertRequest(ctx context.Context, req *LeaveRequest) error
	UpdateRequest(ctx context.Context, req *LeaveRequest) error
	GetBalanceForUpdate(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error)
	ListBalancesForYear(ctx context.Context, year int) ([]Balance, error)
	InsertBalance(ctx context.Context, balance *Balance) error
	UpdateBalance(ctx context.Context, balance *Balance) error
	ClaimAccrual(ctx context.Context, employeeID, leaveTypeID string, year, month int, amount decimal.Decimal) (bool, error)
}
