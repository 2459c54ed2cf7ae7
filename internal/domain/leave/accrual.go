package leave

import (
	"context"
	"errors"
	"fmt"
)

// RunMonthlyAccrual credits every active employee with each active type's
// monthly rate. The ledger row per employee, type and month makes re-runs no-ops.
func (s *Service) RunMonthlyAccrual(ctx context.Context, month, year int) (AccrualSummary, error) {
	summary := AccrualSummary{Month: month, Year: year}
	if month < 1 || month > 12 || year < 1 {
		return summary, fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, year, month)
	}
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		types, err := tx.ListTypes(ctx)
		if err != nil {
			return err
		}
		var accruing []LeaveType
		for _, lt := range types {
			if lt.Active && lt.AccrualRate.IsPositive() {
				accruing = append(accruing, lt)
			}
		}
		if len(accruing) == 0 {
			return nil
		}
		employeeIDs, err := tx.ActiveEmployeeIDs(ctx)
		if err != nil {
			return err
		}
		for _, employeeID := range employeeIDs {
			if _, err := tx.LockEmployee(ctx, employeeID); err != nil {
				return err
			}
			credited := false
			for _, lt := range accruing {
				claimed, err := tx.ClaimAccrual(ctx, employeeID, lt.ID, year, month, lt.AccrualRate)
				if err != nil {
					return err
				}
				if !claimed {
					summary.AlreadyCredited++
					continue
				}
				if err := creditAccrual(ctx, tx, employeeID, lt, year); err != nil {
					return err
				}
				summary.BalancesCredited++
				credited = true
			}
			if credited {
				summary.EmployeesAccrued++
			}
		}
		return nil
	})
	if err != nil {
		return AccrualSummary{Month: month, Year: year}, err
	}
	return summary, nil
}

func creditAccrual(ctx context.Context, tx TxStore, employeeID string, lt LeaveType, year int) error {
	balance, err := tx.GetBalanceForUpdate(ctx, employeeID, lt.ID, year)
	if errors.Is(err, ErrBalanceNotFound) {
		balance = Balance{
			EmployeeID:       employeeID,
			LeaveTypeID:      lt.ID,
			Year:             year,
			Allocated:        lt.AccrualRate,
			AdjustmentReason: reasonMonthlyAccrual,
		}
		return tx.InsertBalance(ctx, &balance)
	}
	if err != nil {
		return err
	}
	balance.Allocated = balance.Allocated.Add(lt.AccrualRate)
	return tx.UpdateBalance(ctx, &balance)
}
