package reports

import (
	"context"
	"errors"
	"time"

	"leavehr/internal/platform/jobs"
)

var ErrUnknownJobType = errors.New("unknown job type")

type Service struct {
	Store    StoreAPI
	Location *time.Location
	Now      func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Location: time.UTC, Now: time.Now}
}

// Dashboard reports on the current calendar day in the service location.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now().In(loc)
	return s.Store.Dashboard(ctx, time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

func (s *Service) JobRuns(ctx context.Context, filter JobRunFilter) ([]JobRun, error) {
	switch filter.JobType {
	case "", jobs.JobLeaveAccrual, jobs.JobLeaveCarryover:
	default:
		return nil, ErrUnknownJobType
	}
	runs, err := s.Store.ListJobRuns(ctx, filter)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []JobRun{}
	}
	return runs, nil
}
