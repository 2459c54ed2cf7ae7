package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"leavehr/internal/domain/leave"
	"leavehr/internal/platform/querier"
)

const (
	JobLeaveAccrual   = "leave_accrual"
	JobLeaveCarryover = "leave_carryover"

	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// LeaveJobs is the part of the leave engine the scheduler drives.
type LeaveJobs interface {
	RunMonthlyAccrual(ctx context.Context, month, year int) (leave.AccrualSummary, error)
	ProcessYearEndCarryover(ctx context.Context, year int) (leave.CarryoverSummary, error)
}

// RunStore keeps the job_runs history.
type RunStore interface {
	Start(ctx context.Context, jobType string) (string, error)
	Finish(ctx context.Context, runID, status string, details []byte) error
}

type JobRecorder interface {
	RecordJob(err error)
}

type Service struct {
	Runs              RunStore
	Leave             LeaveJobs
	Metrics           JobRecorder
	AccrualInterval   time.Duration
	CarryoverInterval time.Duration
	Now               func() time.Time
	queue             chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(runs RunStore, leaveJobs LeaveJobs, accrualInterval, carryoverInterval time.Duration) *Service {
	return &Service{
		Runs:              runs,
		Leave:             leaveJobs,
		AccrualInterval:   accrualInterval,
		CarryoverInterval: carryoverInterval,
		Now:               time.Now,
		queue:             make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.AccrualInterval > 0 {
		go s.schedule(ctx, s.AccrualInterval, s.enqueueAccrual)
	}
	if s.CarryoverInterval > 0 {
		go s.schedule(ctx, s.CarryoverInterval, s.enqueueCarryover)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// RunAccrual credits the given month through the job history so manual and
// scheduled runs show up alike.
func (s *Service) RunAccrual(ctx context.Context, month, year int) (leave.AccrualSummary, error) {
	var summary leave.AccrualSummary
	_, err := s.RunNow(ctx, JobLeaveAccrual, func(ctx context.Context) (any, error) {
		var err error
		summary, err = s.Leave.RunMonthlyAccrual(ctx, month, year)
		return summary, err
	})
	return summary, err
}

func (s *Service) RunCarryover(ctx context.Context, year int) (leave.CarryoverSummary, error) {
	var summary leave.CarryoverSummary
	_, err := s.RunNow(ctx, JobLeaveCarryover, func(ctx context.Context) (any, error) {
		var err error
		summary, err = s.Leave.ProcessYearEndCarryover(ctx, year)
		return summary, err
	})
	return summary, err
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.Start(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := statusCompleted
	if err != nil {
		status = statusFailed
		details = map[string]any{"error": err.Error()}
	}
	if s.Metrics != nil {
		s.Metrics.RecordJob(err)
	}
	if runID != "" {
		detailsJSON, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			slog.Warn("job details marshal failed", "err", marshalErr)
			detailsJSON = []byte("{}")
		}
		if updErr := s.Runs.Finish(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "jobType", j.Type, "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, interval time.Duration, enqueue func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}

// enqueueAccrual credits the current month. Re-running within the month is a
// no-op because each credit is claimed in the accrual ledger.
func (s *Service) enqueueAccrual() {
	now := s.Now()
	month, year := int(now.Month()), now.Year()
	s.Enqueue(JobLeaveAccrual, func(ctx context.Context) (any, error) {
		return s.Leave.RunMonthlyAccrual(ctx, month, year)
	})
}

// enqueueCarryover closes the previous year, only during January.
func (s *Service) enqueueCarryover() {
	now := s.Now()
	if now.Month() != time.January {
		return
	}
	year := now.Year() - 1
	s.Enqueue(JobLeaveCarryover, func(ctx context.Context) (any, error) {
		return s.Leave.ProcessYearEndCarryover(ctx, year)
	})
}

type PGRunStore struct {
	DB querier.Querier
}

func NewRunStore(db querier.Querier) *PGRunStore {
	return &PGRunStore{DB: db}
}

func (p *PGRunStore) Start(ctx context.Context, jobType string) (string, error) {
	var runID string
	err := p.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, statusRunning).Scan(&runID)
	return runID, err
}

func (p *PGRunStore) Finish(ctx context.Context, runID, status string, details []byte) error {
	_, err := p.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}
