package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"leavehr/internal/domain/auth"
	"leavehr/internal/platform/config"
	"leavehr/internal/platform/querier"
)

type seedLeaveType struct {
	Name               string
	AccrualRate        string
	RequiresApproval   bool
	MaxDays            *string
	MaxConsecutiveDays *int
	CarryOverMaxDays   *string
	ExpiryMonth        *int
	ExpiryDay          *int
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int { return &v }

// PTO carries at most five days into the next year, expiring on January 31.
var defaultLeaveTypes = []seedLeaveType{
	{Name: "PTO", AccrualRate: "1.25", RequiresApproval: true, MaxDays: strPtr("20"), MaxConsecutiveDays: intPtr(10), CarryOverMaxDays: strPtr("5"), ExpiryMonth: intPtr(1), ExpiryDay: intPtr(31)},
	{Name: "Sick", AccrualRate: "1", RequiresApproval: true, MaxDays: strPtr("12")},
	{Name: "Bereavement", AccrualRate: "0.5", RequiresApproval: false, MaxConsecutiveDays: intPtr(5)},
}

func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	if err := ensureLeaveTypes(ctx, db); err != nil {
		return err
	}
	return ensureAdminEmployee(ctx, db, cfg.SeedAdminUserID, cfg.SeedAdminEmail)
}

func ensureLeaveTypes(ctx context.Context, db querier.Querier) error {
	for _, lt := range defaultLeaveTypes {
		_, err := db.Exec(ctx, `
    INSERT INTO leave_types (name, accrual_rate, requires_approval, max_days, max_consecutive_days, carry_over_max_days, carry_over_expiry_month, carry_over_expiry_day)
    VALUES ($1,$2::numeric,$3,$4::numeric,$5,$6::numeric,$7,$8)
    ON CONFLICT (name) DO NOTHING
  `, lt.Name, lt.AccrualRate, lt.RequiresApproval, lt.MaxDays, lt.MaxConsecutiveDays, lt.CarryOverMaxDays, lt.ExpiryMonth, lt.ExpiryDay)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminEmployee(ctx context.Context, db querier.Querier, userID, email string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}

	var id string
	err := db.QueryRow(ctx, "SELECT id FROM employees WHERE user_id = $1", userID).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	_, err = db.Exec(ctx, `
    INSERT INTO employees (user_id, first_name, last_name, email, role)
    VALUES ($1,$2,$3,$4,$5)
  `, userID, "System", "Administrator", email, auth.RoleAdmin)
	return err
}
