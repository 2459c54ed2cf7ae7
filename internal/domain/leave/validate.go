package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ValidationInput struct {
	Today     time.Time
	StartDate time.Time
	EndDate   time.Time
	Days      decimal.Decimal
	Type      LeaveType
	Existing  []LeaveRequest
	Used      decimal.Decimal
}

// Validate checks every rule and returns nil when the request is acceptable.
func Validate(in ValidationInput) *ValidationError {
	var violations []Violation
	add := func(code, format string, args ...any) {
		violations = append(violations, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	start, end := DateOnly(in.StartDate), DateOnly(in.EndDate)
	if start.Before(DateOnly(in.Today)) {
		add(CodePastDate, "start date %s is in the past", start.Format(time.DateOnly))
	}
	validRange := !end.Before(start)
	if !validRange {
		add(CodeInvalidRange, "end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	if validRange {
		for _, existing := range in.Existing {
			if !existing.Active() {
				continue
			}
			if Overlaps(existing.StartDate, existing.EndDate, start, end) {
				add(CodeOverlap, "overlaps %s request %s (%s to %s)", existing.Status, existing.ID,
					DateOnly(existing.StartDate).Format(time.DateOnly), DateOnly(existing.EndDate).Format(time.DateOnly))
			}
		}
		if in.Days.IsZero() {
			add(CodeNoWorkingDays, "range contains no working days")
		}
	}

	if in.Type.MaxConsecutiveDays != nil && in.Days.GreaterThan(decimal.NewFromInt(int64(*in.Type.MaxConsecutiveDays))) {
		add(CodeMaxConsecutiveExceeded, "%s days exceeds the %d consecutive day limit", in.Days, *in.Type.MaxConsecutiveDays)
	}
	if in.Type.MaxDays != nil && in.Used.Add(in.Days).GreaterThan(*in.Type.MaxDays) {
		add(CodeMaxAnnualExceeded, "%s used plus %s requested exceeds the annual limit of %s", in.Used, in.Days, in.Type.MaxDays)
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
