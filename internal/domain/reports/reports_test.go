package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	day    time.Time
	filter JobRunFilter
}

func (f *fakeStore) Dashboard(ctx context.Context, day time.Time) (Dashboard, error) {
	f.day = day
	return Dashboard{Date: day.Format("2006-01-02")}, nil
}

func (f *fakeStore) ListJobRuns(ctx context.Context, filter JobRunFilter) ([]JobRun, error) {
	f.filter = filter
	return nil, nil
}

func TestDashboardUsesLocalCalendarDay(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	svc.Location = time.FixedZone("UTC+8", 8*3600)
	svc.Now = func() time.Time { return time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC) }

	got, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date != "2025-03-04" {
		t.Fatalf("expected next local day, got %s", got.Date)
	}
}

func TestJobRunsRejectsUnknownType(t *testing.T) {
	svc := NewService(&fakeStore{})
	if _, err := svc.JobRuns(context.Background(), JobRunFilter{JobType: "payroll"}); !errors.Is(err, ErrUnknownJobType) {
		t.Fatalf("expected ErrUnknownJobType, got %v", err)
	}
	runs, err := svc.JobRuns(context.Background(), JobRunFilter{JobType: "leave_accrual"})
	if err != nil || runs == nil {
		t.Fatalf("expected empty list, got %v %v", runs, err)
	}
}

func TestBuildJobRunsQuery(t *testing.T) {
	query, args := buildJobRunsQuery(JobRunFilter{JobType: "leave_accrual", Status: "failed", Limit: 10, Offset: 20})
	if !strings.Contains(query, "job_type = $1") || !strings.Contains(query, "status = $2") {
		t.Fatalf("unexpected filters: %s", query)
	}
	if !strings.Contains(query, "LIMIT $3 OFFSET $4") {
		t.Fatalf("unexpected paging: %s", query)
	}
	if len(args) != 4 || args[2] != 10 || args[3] != 20 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestDecodeDetails(t *testing.T) {
	if got := decodeDetails([]byte(`{"balancesCredited":3}`)); got["balancesCredited"] != float64(3) {
		t.Fatalf("unexpected details: %v", got)
	}
	if got := decodeDetails([]byte("not json")); got["raw"] != "not json" {
		t.Fatalf("expected raw fallback, got %v", got)
	}
	if got := decodeDetails(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}
