package reports

import (
	"context"
	"time"
)

type StoreAPI interface {
	Dashboard(ctx context.Context, day time.Time) (Dashboard, error)
	ListJobRuns(ctx context.Context, filter JobRunFilter) ([]JobRun, error)
}
