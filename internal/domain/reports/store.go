package reports

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"leavehr/internal/domain/leave"
	"leavehr/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Dashboard(ctx context.Context, day time.Time) (Dashboard, error) {
	out := Dashboard{Date: day.Format("2006-01-02"), AttendanceByStatus: map[string]int{}}

	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests WHERE status = $1", leave.StatusPending).Scan(&out.PendingLeaveRequests); err != nil {
		return Dashboard{}, err
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(DISTINCT employee_id)
    FROM leave_requests
    WHERE status = $1 AND start_date <= $2 AND end_date >= $2
  `, leave.StatusApproved, day).Scan(&out.OnLeaveToday); err != nil {
		return Dashboard{}, err
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE active), COUNT(1) FILTER (WHERE active AND fingerprint_enrolled)
    FROM employees
  `).Scan(&out.ActiveEmployees, &out.EnrolledEmployees); err != nil {
		return Dashboard{}, err
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM attendance
    WHERE date = $1 AND check_in_time IS NOT NULL AND check_out_time IS NULL
  `, day).Scan(&out.OpenCheckIns); err != nil {
		return Dashboard{}, err
	}

	rows, err := s.DB.Query(ctx, "SELECT status, COUNT(1) FROM attendance WHERE date = $1 GROUP BY status", day)
	if err != nil {
		return Dashboard{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Dashboard{}, err
		}
		out.AttendanceByStatus[status] = count
	}
	return out, rows.Err()
}

func (s *Store) ListJobRuns(ctx context.Context, filter JobRunFilter) ([]JobRun, error) {
	query, args := buildJobRunsQuery(filter)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRun
	for rows.Next() {
		var run JobRun
		var detailsRaw []byte
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &detailsRaw, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		run.Details = decodeDetails(detailsRaw)
		out = append(out, run)
	}
	return out, rows.Err()
}

func buildJobRunsQuery(filter JobRunFilter) (string, []any) {
	query := `
    SELECT id::text, job_type, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at
    FROM job_runs
    WHERE 1=1`
	var args []any

	if value := strings.TrimSpace(filter.JobType); value != "" {
		args = append(args, value)
		query += " AND job_type = $" + strconv.Itoa(len(args))
	}
	if value := strings.TrimSpace(filter.Status); value != "" {
		args = append(args, value)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	return query, args
}

func decodeDetails(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	details := map[string]any{}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return details
}
