package core

import "time"

type Employee struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"userId"`
	ManagerID           string     `json:"managerId"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	Active              bool       `json:"active"`
	FingerprintEnrolled bool       `json:"fingerprintEnrolled"`
	FingerprintTemplate string     `json:"-"`
	EnrollmentDate      *time.Time `json:"enrollmentDate,omitempty"`
	PinHash             string     `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
