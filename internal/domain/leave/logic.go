package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type holidaySet struct {
	fixed     map[time.Time]struct{}
	recurring map[[2]int]struct{}
}

func newHolidaySet(holidays []Holiday) holidaySet {
	set := holidaySet{fixed: map[time.Time]struct{}{}, recurring: map[[2]int]struct{}{}}
	for _, h := range holidays {
		if h.Recurring {
			set.recurring[[2]int{int(h.Date.Month()), h.Date.Day()}] = struct{}{}
			continue
		}
		set.fixed[DateOnly(h.Date)] = struct{}{}
	}
	return set
}

func (s holidaySet) contains(day time.Time) bool {
	if _, ok := s.fixed[day]; ok {
		return true
	}
	_, ok := s.recurring[[2]int{int(day.Month()), day.Day()}]
	return ok
}

// BusinessDays counts Monday to Friday dates in [start, end] that are not holidays.
// It returns 0 when end is before start.
func BusinessDays(start, end time.Time, holidays []Holiday) int {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0
	}
	set := newHolidaySet(holidays)
	count := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		if set.contains(day) {
			continue
		}
		count++
	}
	return count
}

func businessDaysDecimal(start, end time.Time, holidays []Holiday) decimal.Decimal {
	return decimal.NewFromInt(int64(BusinessDays(start, end, holidays)))
}

// Overlaps applies the inclusive range test used for leave collisions.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !DateOnly(aStart).After(DateOnly(bEnd)) && !DateOnly(aEnd).Before(DateOnly(bStart))
}
