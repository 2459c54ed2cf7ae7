package biometric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leavehr/internal/domain/core"
	"leavehr/internal/platform/device"
)

const (
	AuditFingerprintEnrolled = "FINGERPRINT_ENROLLED"
	AuditFingerprintUpdated  = "FINGERPRINT_UPDATED"
	AuditFingerprintRemoved  = "FINGERPRINT_REMOVED"
)

// EmployeeStore is the part of the employee directory enrollment writes to.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
	EnrollFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error
	SaveFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error
	ClearFingerprint(ctx context.Context, employeeID string) error
}

type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error
}

type Service struct {
	Employees EmployeeStore
	Device    device.Source
	Audit     Auditor
	Now       func() time.Time
}

func NewService(employees EmployeeStore, source device.Source, audit Auditor) *Service {
	return &Service{Employees: employees, Device: source, Audit: audit, Now: time.Now}
}

// Enrollment is the public view of an employee's fingerprint state.
type Enrollment struct {
	EmployeeID     string     `json:"employeeId"`
	Enrolled       bool       `json:"enrolled"`
	EnrollmentDate *time.Time `json:"enrollmentDate,omitempty"`
}

func enrollmentOf(emp core.Employee) Enrollment {
	return Enrollment{EmployeeID: emp.ID, Enrolled: emp.FingerprintEnrolled, EnrollmentDate: emp.EnrollmentDate}
}

func (s *Service) Status(ctx context.Context, employeeID string) (Enrollment, error) {
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return Enrollment{}, err
	}
	return enrollmentOf(emp), nil
}

// Enroll stores a first template for the employee. A provided template is
// used as is; otherwise one is captured from the device.
func (s *Service) Enroll(ctx context.Context, actorID, employeeID, provided string) (Enrollment, error) {
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return Enrollment{}, err
	}
	if !emp.Active {
		return Enrollment{}, ErrEmployeeInactive
	}
	if emp.FingerprintEnrolled {
		return Enrollment{}, ErrAlreadyEnrolled
	}
	result, err := s.store(ctx, employeeID, provided, s.Employees.EnrollFingerprint)
	if err != nil {
		return Enrollment{}, err
	}
	s.record(ctx, actorID, AuditFingerprintEnrolled, employeeID, enrollmentOf(emp), result)
	return result, nil
}

// UpdateEnrollment overwrites the template and enrollment date.
func (s *Service) UpdateEnrollment(ctx context.Context, actorID, employeeID, provided string) (Enrollment, error) {
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return Enrollment{}, err
	}
	if !emp.FingerprintEnrolled {
		return Enrollment{}, ErrNotEnrolled
	}
	result, err := s.store(ctx, employeeID, provided, s.Employees.SaveFingerprint)
	if err != nil {
		return Enrollment{}, err
	}
	s.record(ctx, actorID, AuditFingerprintUpdated, employeeID, enrollmentOf(emp), result)
	return result, nil
}

func (s *Service) RemoveEnrollment(ctx context.Context, actorID, employeeID string) error {
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return err
	}
	if !emp.FingerprintEnrolled {
		return ErrNotEnrolled
	}
	if err := s.Employees.ClearFingerprint(ctx, employeeID); err != nil {
		return err
	}
	s.record(ctx, actorID, AuditFingerprintRemoved, employeeID, enrollmentOf(emp), nil)
	return nil
}

// Capture reads a template from the device, treating an empty read as a failure.
func (s *Service) Capture(ctx context.Context, employeeID string) (string, error) {
	if s.Device == nil {
		return "", fmt.Errorf("%w: no device configured", ErrDeviceFailure)
	}
	template, err := s.Device.Capture(ctx, employeeID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("%w: empty capture", ErrDeviceFailure)
	}
	return template, nil
}

type saveFunc func(ctx context.Context, employeeID, template string, enrolledAt time.Time) error

func (s *Service) store(ctx context.Context, employeeID, provided string, save saveFunc) (Enrollment, error) {
	template := strings.TrimSpace(provided)
	if template == "" {
		var err error
		template, err = s.Capture(ctx, employeeID)
		if err != nil {
			return Enrollment{}, err
		}
	}
	if err := save(ctx, employeeID, template, s.now()); err != nil {
		switch {
		case errors.Is(err, core.ErrAlreadyEnrolled):
			return Enrollment{}, ErrAlreadyEnrolled
		case errors.Is(err, core.ErrEmployeeNotFound):
			return Enrollment{}, ErrEmployeeNotFound
		}
		return Enrollment{}, err
	}
	saved, err := s.employee(ctx, employeeID)
	if err != nil {
		return Enrollment{}, err
	}
	if !saved.FingerprintEnrolled || saved.FingerprintTemplate == "" {
		return Enrollment{}, ErrPersistFailed
	}
	return enrollmentOf(saved), nil
}

func (s *Service) employee(ctx context.Context, employeeID string) (core.Employee, error) {
	emp, err := s.Employees.GetEmployee(ctx, employeeID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		return core.Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) record(ctx context.Context, actorID, action, employeeID string, before, after any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actorID, action, "employee", employeeID, before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "employeeId", employeeID, "err", err)
	}
}
