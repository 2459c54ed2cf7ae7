package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"leavehr/internal/platform/querier"
)

const typeColumns = `id::text, name, accrual_rate, requires_approval, max_days, max_consecutive_days, active,
           carry_over_max_days, COALESCE(carry_over_expiry_month, 0), COALESCE(carry_over_expiry_day, 0), created_at`

func scanType(row pgx.Row) (LeaveType, error) {
	var t LeaveType
	var rate, maxDays, carryMax pgtype.Numeric
	if err := row.Scan(&t.ID, &t.Name, &rate, &t.RequiresApproval, &maxDays, &t.MaxConsecutiveDays, &t.Active,
		&carryMax, &t.CarryOver.ExpiryMonth, &t.CarryOver.ExpiryDay, &t.CreatedAt); err != nil {
		return LeaveType{}, err
	}
	t.AccrualRate = toDecimal(rate)
	t.MaxDays = toDecimalPtr(maxDays)
	t.CarryOver.MaxDays = toDecimalPtr(carryMax)
	return t, nil
}

func listTypes(ctx context.Context, q querier.Querier) ([]LeaveType, error) {
	rows, err := q.Query(ctx, `
    SELECT `+typeColumns+`
    FROM leave_types
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func getType(ctx context.Context, q querier.Querier, leaveTypeID string) (LeaveType, error) {
	t, err := scanType(q.QueryRow(ctx, `
    SELECT `+typeColumns+`
    FROM leave_types
    WHERE id::text = $1
  `, leaveTypeID))
	return t, notFound(err, ErrLeaveTypeNotFound)
}

func listHolidays(ctx context.Context, q querier.Querier) ([]Holiday, error) {
	rows, err := q.Query(ctx, `
    SELECT id::text, date, name, recurring
    FROM holidays
    ORDER BY date
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

const balanceColumns = `id::text, employee_id::text, leave_type_id::text, year, allocated, used, pending, carry_over, adjustment,
           adjustment_reason, expiry_date, version, updated_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	var allocated, used, pending, carry, adjustment pgtype.Numeric
	if err := row.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &allocated, &used, &pending, &carry, &adjustment,
		&b.AdjustmentReason, &b.ExpiryDate, &b.Version, &b.UpdatedAt); err != nil {
		return Balance{}, err
	}
	b.Allocated = toDecimal(allocated)
	b.Used = toDecimal(used)
	b.Pending = toDecimal(pending)
	b.CarryOver = toDecimal(carry)
	b.Adjustment = toDecimal(adjustment)
	return b, nil
}

func collectBalances(rows pgx.Rows) ([]Balance, error) {
	defer rows.Close()
	var out []Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const requestColumns = `id::text, employee_id::text, leave_type_id::text, start_date, end_date, days, status, reason,
           COALESCE(approved_by, ''), approval_date, comments, version, created_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	var days pgtype.Numeric
	if err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &r.StartDate, &r.EndDate, &days, &r.Status, &r.Reason,
		&r.ApprovedBy, &r.ApprovalDate, &r.Comments, &r.Version, &r.CreatedAt); err != nil {
		return LeaveRequest{}, err
	}
	r.Days = toDecimal(days)
	return r, nil
}

func collectRequests(rows pgx.Rows) ([]LeaveRequest, error) {
	defer rows.Close()
	var out []LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func getRequest(ctx context.Context, q querier.Querier, requestID string, forUpdate bool) (LeaveRequest, error) {
	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests
    WHERE id::text = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	r, err := scanRequest(q.QueryRow(ctx, query, requestID))
	return r, notFound(err, ErrRequestNotFound)
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return listTypes(ctx, s.DB)
}

func (s *Store) GetType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	return getType(ctx, s.DB, leaveTypeID)
}

func (s *Store) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (name, accrual_rate, requires_approval, max_days, max_consecutive_days, active,
                             carry_over_max_days, carry_over_expiry_month, carry_over_expiry_day)
    VALUES ($1,$2::numeric,$3,$4::numeric,$5,$6,$7::numeric,NULLIF($8, 0),NULLIF($9, 0))
    RETURNING id::text
  `, payload.Name, payload.AccrualRate.String(), payload.RequiresApproval, decimalArg(payload.MaxDays), payload.MaxConsecutiveDays,
		payload.Active, decimalArg(payload.CarryOver.MaxDays), payload.CarryOver.ExpiryMonth, payload.CarryOver.ExpiryDay).Scan(&id)
	if isUniqueViolation(err) {
		return "", ErrDuplicateLeaveType
	}
	return id, err
}

func (s *Store) UpdateType(ctx context.Context, payload LeaveType) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_types
    SET name = $2, accrual_rate = $3::numeric, requires_approval = $4, max_days = $5::numeric, max_consecutive_days = $6,
        active = $7, carry_over_max_days = $8::numeric, carry_over_expiry_month = NULLIF($9, 0), carry_over_expiry_day = NULLIF($10, 0)
    WHERE id::text = $1
  `, payload.ID, payload.Name, payload.AccrualRate.String(), payload.RequiresApproval, decimalArg(payload.MaxDays), payload.MaxConsecutiveDays,
		payload.Active, decimalArg(payload.CarryOver.MaxDays), payload.CarryOver.ExpiryMonth, payload.CarryOver.ExpiryDay)
	if isUniqueViolation(err) {
		return ErrDuplicateLeaveType
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaveTypeNotFound
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	return listHolidays(ctx, s.DB)
}

func (s *Store) CreateHoliday(ctx context.Context, holiday Holiday) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (date, name, recurring)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, DateOnly(holiday.Date), holiday.Name, holiday.Recurring).Scan(&id)
	return id, err
}

func (s *Store) DeleteHoliday(ctx context.Context, holidayID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id::text = $1", holidayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHolidayNotFound
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id::text = $1 AND ($2 = 0 OR year = $2)
    ORDER BY year DESC, leave_type_id
  `, employeeID, year)
	if err != nil {
		return nil, err
	}
	return collectBalances(rows)
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return getRequest(ctx, s.DB, requestID, false)
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	query := `
    SELECT ` + requestColumns + `
    FROM leave_requests
    WHERE 1=1`
	args := []any{}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id::text = $%d", len(args))
	}
	if filter.ManagerEmployeeID != "" {
		args = append(args, filter.ManagerEmployeeID)
		query += fmt.Sprintf(" AND employee_id IN (SELECT id FROM employees WHERE manager_id::text = $%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY start_date DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (t *pgTx) LockEmployee(ctx context.Context, employeeID string) (EmployeeRef, error) {
	var ref EmployeeRef
	err := t.tx.QueryRow(ctx, `
    SELECT id::text, COALESCE(manager_id::text, ''), active
    FROM employees
    WHERE id::text = $1
    FOR UPDATE
  `, employeeID).Scan(&ref.ID, &ref.ManagerID, &ref.Active)
	return ref, notFound(err, ErrEmployeeNotFound)
}

func (t *pgTx) GetType(ctx context.Context, leaveTypeID string) (LeaveType, error) {
	return getType(ctx, t.tx, leaveTypeID)
}

func (t *pgTx) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return listTypes(ctx, t.tx)
}

func (t *pgTx) ListHolidays(ctx context.Context) ([]Holiday, error) {
	return listHolidays(ctx, t.tx)
}

func (t *pgTx) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	return getRequest(ctx, t.tx, requestID, false)
}

func (t *pgTx) GetRequestForUpdate(ctx context.Context, requestID string) (LeaveRequest, error) {
	return getRequest(ctx, t.tx, requestID, true)
}

func (t *pgTx) ActiveRequestsInRange(ctx context.Context, employeeID string, start, end time.Time) ([]LeaveRequest, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE employee_id::text = $1
      AND status IN ($2, $3)
      AND start_date <= $5 AND end_date >= $4
    ORDER BY start_date
  `, employeeID, StatusPending, StatusApproved, DateOnly(start), DateOnly(end))
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (t *pgTx) InsertRequest(ctx context.Context, req *LeaveRequest) error {
	return t.tx.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, days, status, reason, approved_by, approval_date, comments)
    VALUES ($1::uuid,$2::uuid,$3,$4,$5::numeric,$6,$7,NULLIF($8, ''),$9,$10)
    RETURNING id::text, version, created_at
  `, req.EmployeeID, req.LeaveTypeID, DateOnly(req.StartDate), DateOnly(req.EndDate), req.Days.String(), req.Status, req.Reason,
		req.ApprovedBy, req.ApprovalDate, req.Comments).Scan(&req.ID, &req.Version, &req.CreatedAt)
}

func (t *pgTx) UpdateRequest(ctx context.Context, req *LeaveRequest) error {
	var version int
	err := t.tx.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $3, approved_by = NULLIF($4, ''), approval_date = $5, comments = $6, version = version + 1, updated_at = now()
    WHERE id::text = $1 AND version = $2
    RETURNING version
  `, req.ID, req.Version, req.Status, req.ApprovedBy, req.ApprovalDate, req.Comments).Scan(&version)
	if err != nil {
		return notFound(err, ErrConflict)
	}
	req.Version = version
	return nil
}

func (t *pgTx) GetBalanceForUpdate(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error) {
	b, err := scanBalance(t.tx.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id::text = $1 AND leave_type_id::text = $2 AND year = $3
    FOR UPDATE
  `, employeeID, leaveTypeID, year))
	return b, notFound(err, ErrBalanceNotFound)
}

func (t *pgTx) InsertBalance(ctx context.Context, balance *Balance) error {
	err := t.tx.QueryRow(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated, used, pending, carry_over, adjustment, adjustment_reason, expiry_date)
    VALUES ($1::uuid,$2::uuid,$3,$4::numeric,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9,$10)
    RETURNING id::text, version, updated_at
  `, balance.EmployeeID, balance.LeaveTypeID, balance.Year, balance.Allocated.String(), balance.Used.String(), balance.Pending.String(),
		balance.CarryOver.String(), balance.Adjustment.String(), balance.AdjustmentReason, balance.ExpiryDate).Scan(&balance.ID, &balance.Version, &balance.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (t *pgTx) UpdateBalance(ctx context.Context, balance *Balance) error {
	err := t.tx.QueryRow(ctx, `
    UPDATE leave_balances
    SET allocated = $3::numeric, used = $4::numeric, pending = $5::numeric, carry_over = $6::numeric, adjustment = $7::numeric,
        adjustment_reason = $8, expiry_date = $9, version = version + 1, updated_at = now()
    WHERE id::text = $1 AND version = $2
    RETURNING version, updated_at
  `, balance.ID, balance.Version, balance.Allocated.String(), balance.Used.String(), balance.Pending.String(),
		balance.CarryOver.String(), balance.Adjustment.String(), balance.AdjustmentReason, balance.ExpiryDate).Scan(&balance.Version, &balance.UpdatedAt)
	return notFound(err, ErrConflict)
}
