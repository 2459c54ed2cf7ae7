package attendance

import "time"

type Record struct {
	ID                  string     `json:"id"`
	EmployeeID          string     `json:"employeeId"`
	Date                time.Time  `json:"date"`
	Status              string     `json:"status"`
	CheckInTime         *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime        *time.Time `json:"checkOutTime,omitempty"`
	VerificationMethod  string     `json:"verificationMethod"`
	FingerprintTemplate string     `json:"-"`
	ConfidenceScore     *float64   `json:"confidenceScore,omitempty"`
	Notes               string     `json:"notes"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// MarkResult is what the kiosk shows after a successful scan.
type MarkResult struct {
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName"`
	Action       string  `json:"action"`
	Confidence   float64 `json:"confidence"`
	Record       Record  `json:"record"`
}

type CreateInput struct {
	EmployeeID   string
	Date         time.Time
	Status       string
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	Method       string
	Template     string
	Verify       bool
	Notes        string
}

type Filter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
