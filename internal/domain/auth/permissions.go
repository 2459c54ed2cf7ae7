package auth

import (
	"context"
	"slices"
)

const (
	PermEmployeesRead     = "employees.read"
	PermEmployeesWrite    = "employees.write"
	PermLeaveRead         = "leave.read"
	PermLeaveWrite        = "leave.write"
	PermLeaveApprove      = "leave.approve"
	PermLeaveAdmin        = "leave.admin"
	PermAttendanceRead    = "attendance.read"
	PermAttendanceWrite   = "attendance.write"
	PermFingerprintManage = "attendance.fingerprint.manage"
	PermAttendanceKiosk   = "attendance.kiosk"
	PermAuditRead         = "audit.read"
	PermNotificationsRead = "notifications.read"
	PermReportsRead       = "reports.read"
	PermSystemMetrics     = "system.metrics"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
		PermAttendanceRead,
		PermNotificationsRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermAttendanceRead,
		PermNotificationsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermFingerprintManage,
		PermAttendanceKiosk,
		PermNotificationsRead,
		PermAuditRead,
		PermReportsRead,
	},
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermFingerprintManage,
		PermAttendanceKiosk,
		PermNotificationsRead,
		PermAuditRead,
		PermReportsRead,
		PermSystemMetrics,
	},
	RoleKiosk: {
		PermAttendanceKiosk,
	},
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(ctx context.Context, roleName, permission string) (bool, error) {
	return slices.Contains(RolePermissions[roleName], permission), nil
}
