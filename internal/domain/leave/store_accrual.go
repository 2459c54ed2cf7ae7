package leave

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (t *pgTx) ActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT id::text
    FROM employees
    WHERE active
    ORDER BY id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *pgTx) ListBalancesForYear(ctx context.Context, year int) ([]Balance, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE year = $1
    ORDER BY employee_id, leave_type_id
  `, year)
	if err != nil {
		return nil, err
	}
	return collectBalances(rows)
}

// ClaimAccrual writes the ledger row for one credit and reports false when it already exists.
func (t *pgTx) ClaimAccrual(ctx context.Context, employeeID, leaveTypeID string, year, month int, amount decimal.Decimal) (bool, error) {
	var inserted int
	err := t.tx.QueryRow(ctx, `
    INSERT INTO leave_accrual_ledger (employee_id, leave_type_id, year, month, amount)
    VALUES ($1::uuid,$2::uuid,$3,$4,$5::numeric)
    ON CONFLICT (employee_id, leave_type_id, year, month) DO NOTHING
    RETURNING 1
  `, employeeID, leaveTypeID, year, month, amount.String()).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
