package leave

import (
	"context"
	"fmt"
)

// ProcessYearEndCarryover moves each positive remainder of year into year+1
// under the leave type's policy. The next-year carryOver is set, not added,
// so running the same year twice gives the same result.
func (s *Service) ProcessYearEndCarryover(ctx context.Context, year int) (CarryoverSummary, error) {
	summary := CarryoverSummary{Year: year}
	if year < 1 {
		return summary, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		types, err := tx.ListTypes(ctx)
		if err != nil {
			return err
		}
		byID := make(map[string]LeaveType, len(types))
		for _, lt := range types {
			byID[lt.ID] = lt
		}
		balances, err := tx.ListBalancesForYear(ctx, year)
		if err != nil {
			return err
		}
		locked := map[string]bool{}
		for _, b := range balances {
			lt, ok := byID[b.LeaveTypeID]
			remaining := b.Available()
			if !ok || !remaining.IsPositive() {
				summary.Skipped++
				continue
			}
			amount, expiry := lt.CarryOver.Apply(remaining, year+1)
			if !locked[b.EmployeeID] {
				if _, err := tx.LockEmployee(ctx, b.EmployeeID); err != nil {
					return err
				}
				locked[b.EmployeeID] = true
			}
			next, err := ensureBalance(ctx, tx, b.EmployeeID, lt, year+1)
			if err != nil {
				return err
			}
			next.CarryOver = amount
			next.ExpiryDate = expiry
			if err := tx.UpdateBalance(ctx, &next); err != nil {
				return err
			}
			summary.Processed++
			if amount.LessThan(remaining) {
				summary.Capped++
			}
		}
		return nil
	})
	if err != nil {
		return CarryoverSummary{Year: year}, err
	}
	return summary, nil
}
