package auth

import (
	"context"
	"testing"
	"time"
)

func TestHashAndCheckSecret(t *testing.T) {
	hash, err := HashSecret("4821")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckSecret(hash, "4821"); err != nil {
		t.Fatalf("expected pin to match, got %v", err)
	}
	if err := CheckSecret(hash, "0000"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{UserID: "u1", RoleName: RoleManager}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != "u1" || parsed.RoleName != RoleManager {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	token, err := GenerateToken("s", Claims{UserID: "u1", RoleName: "superuser"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("s", token); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestRolePermissions(t *testing.T) {
	perms := StaticPermissions{}
	ctx := context.Background()

	cases := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleEmployee, PermLeaveWrite, true},
		{RoleEmployee, PermLeaveApprove, false},
		{RoleManager, PermLeaveApprove, true},
		{RoleManager, PermLeaveAdmin, false},
		{RoleHR, PermFingerprintManage, true},
		{RoleAdmin, PermSystemMetrics, true},
		{RoleHR, PermAuditRead, true},
		{RoleKiosk, PermAttendanceKiosk, true},
		{RoleKiosk, PermLeaveRead, false},
		{"unknown", PermLeaveRead, false},
	}
	for _, tc := range cases {
		got, err := perms.HasPermission(ctx, tc.role, tc.permission)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.role, tc.permission, tc.want, got)
		}
	}
}

func TestApproverRoles(t *testing.T) {
	if (UserContext{RoleName: RoleEmployee}).IsApprover() {
		t.Fatal("employee must not approve")
	}
	if !(UserContext{RoleName: RoleManager}).IsApprover() {
		t.Fatal("manager must approve")
	}
	if (UserContext{RoleName: RoleManager}).IsPrivileged() {
		t.Fatal("manager is scoped to reports")
	}
}
