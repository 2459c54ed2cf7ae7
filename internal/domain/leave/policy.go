package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// CarryOverPolicy decides how much of a year's unused balance moves into the next year.
// A nil MaxDays carries the full remainder. ExpiryMonth 0 means carried days never expire.
type CarryOverPolicy struct {
	MaxDays     *decimal.Decimal `json:"maxDays,omitempty"`
	ExpiryMonth int              `json:"expiryMonth,omitempty" validate:"omitempty,min=1,max=12"`
	ExpiryDay   int              `json:"expiryDay,omitempty" validate:"omitempty,min=1,max=31"`
}

// Apply returns the carried amount and the expiry stamped on the next-year row.
func (p CarryOverPolicy) Apply(remaining decimal.Decimal, nextYear int) (decimal.Decimal, *time.Time) {
	if remaining.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	amount := remaining
	if p.MaxDays != nil && amount.GreaterThan(*p.MaxDays) {
		amount = *p.MaxDays
	}
	if p.ExpiryMonth == 0 {
		return amount, nil
	}
	day := p.ExpiryDay
	if day == 0 {
		day = 1
	}
	expiry := time.Date(nextYear, time.Month(p.ExpiryMonth), day, 0, 0, 0, 0, time.UTC)
	// Clamp days past month end, e.g. Feb 30 becomes the last day of February.
	if expiry.Month() != time.Month(p.ExpiryMonth) {
		expiry = time.Date(nextYear, time.Month(p.ExpiryMonth)+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return amount, &expiry
}
