package reports

import "time"

// Dashboard is the HR overview of one working day.
type Dashboard struct {
	Date                 string         `json:"date"`
	PendingLeaveRequests int            `json:"pendingLeaveRequests"`
	OnLeaveToday         int            `json:"onLeaveToday"`
	AttendanceByStatus   map[string]int `json:"attendanceByStatus"`
	OpenCheckIns         int            `json:"openCheckIns"`
	ActiveEmployees      int            `json:"activeEmployees"`
	EnrolledEmployees    int            `json:"enrolledEmployees"`
}

type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type JobRunFilter struct {
	JobType string
	Status  string
	Limit   int
	Offset  int
}
