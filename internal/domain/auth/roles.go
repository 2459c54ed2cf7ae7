package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
	// RoleKiosk is the shared terminal account that marks attendance.
	RoleKiosk = "kiosk"
)

// UserContext is the authenticated principal attached to a request.
type UserContext struct {
	UserID   string `json:"userId"`
	RoleName string `json:"role"`
}

func (u UserContext) IsApprover() bool {
	return u.RoleName == RoleManager || u.RoleName == RoleHR || u.RoleName == RoleAdmin
}

// IsPrivileged reports roles that may act on any employee.
func (u UserContext) IsPrivileged() bool {
	return u.RoleName == RoleHR || u.RoleName == RoleAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleManager, RoleHR, RoleAdmin, RoleKiosk:
		return true
	}
	return false
}
