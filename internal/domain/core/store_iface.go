package core

import (
	"context"
	"time"
)

type StoreAPI interface {
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	GetEmployeeByUserID(ctx context.Context, userID string) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (string, error)
	IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error)
	ApproverUserIDs(ctx context.Context, employeeID string) ([]string, error)
	ListEnrolled(ctx context.Context) ([]Employee, error)
	SaveFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error
	ClearFingerprint(ctx context.Context, employeeID string) error
	SetPinHash(ctx context.Context, employeeID, hash string) error
}
