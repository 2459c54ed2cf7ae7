package shared

import (
	"net/http"
	"strconv"
	"time"
)

const DayLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(DayLayout, value)
}

// ParseOptionalDay parses a query value; empty means no bound.
func ParseOptionalDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DayLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type Page struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset. Malformed values fall back to the
// defaults and the limit is capped at maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Page {
	q := r.URL.Query()
	page := Page{
		Limit:  queryInt(q.Get("limit"), defaultLimit, 1),
		Offset: queryInt(q.Get("offset"), 0, 0),
	}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	return page
}

func queryInt(raw string, fallback, floor int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < floor {
		return fallback
	}
	return n
}
