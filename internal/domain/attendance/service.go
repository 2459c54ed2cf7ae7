package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/biometric"
	"leavehr/internal/domain/core"
)

// Directory is the read side of the employee directory the kiosk needs.
type Directory interface {
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
	ListEnrolled(ctx context.Context) ([]core.Employee, error)
}

// Capturer reads a template from the configured device.
type Capturer interface {
	Capture(ctx context.Context, employeeID string) (string, error)
}

type MatchRecorder interface {
	RecordMatch(matched bool)
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Matcher   Matcher
	Capture   Capturer
	Metrics   MatchRecorder
	Location  *time.Location
	Now       func() time.Time
}

func NewService(store StoreAPI, directory Directory, matcher Matcher, capture Capturer, metrics MatchRecorder) *Service {
	return &Service{Store: store, Directory: directory, Matcher: matcher, Capture: capture, Metrics: metrics, Location: time.UTC, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Day is the attendance date a moment falls on.
func (s *Service) Day(t time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IdentifyAndMark finds who a kiosk capture belongs to and checks them in,
// or out when today's row is already open. An empty capture is read from the device.
func (s *Service) IdentifyAndMark(ctx context.Context, captured string) (MarkResult, error) {
	captured = strings.TrimSpace(captured)
	if captured == "" {
		if s.Capture == nil {
			return MarkResult{}, fmt.Errorf("%w: no device configured", biometric.ErrDeviceFailure)
		}
		var err error
		captured, err = s.Capture.Capture(ctx, "")
		if err != nil {
			return MarkResult{}, err
		}
	}

	enrolled, err := s.Directory.ListEnrolled(ctx)
	if err != nil {
		return MarkResult{}, err
	}
	candidates := make([]Candidate, 0, len(enrolled))
	byID := make(map[string]core.Employee, len(enrolled))
	for _, emp := range enrolled {
		candidates = append(candidates, Candidate{EmployeeID: emp.ID, Template: emp.FingerprintTemplate})
		byID[emp.ID] = emp
	}

	match, err := s.Matcher.Identify(captured, candidates)
	s.recordMatch(err == nil)
	if err != nil {
		var noMatch *NoMatchError
		if errors.As(err, &noMatch) {
			slog.Info("kiosk identification failed", "bestConfidence", noMatch.Best, "candidates", noMatch.Candidates)
		}
		return MarkResult{}, err
	}

	emp := byID[match.EmployeeID]
	result, err := s.mark(ctx, emp.ID, MethodFingerprint, captured, match.Confidence)
	if err != nil {
		return MarkResult{}, err
	}
	result.EmployeeName = emp.FullName()
	return result, nil
}

// MarkWithPin is the kiosk fallback for employees whose scan does not match.
func (s *Service) MarkWithPin(ctx context.Context, employeeID, pin string) (MarkResult, error) {
	emp, err := s.employee(ctx, employeeID)
	if err != nil {
		return MarkResult{}, err
	}
	if !emp.Active {
		return MarkResult{}, ErrEmployeeInactive
	}
	if emp.PinHash == "" || auth.CheckSecret(emp.PinHash, pin) != nil {
		return MarkResult{}, ErrInvalidPin
	}
	result, err := s.mark(ctx, emp.ID, MethodPIN, "", 1)
	if err != nil {
		return MarkResult{}, err
	}
	result.EmployeeName = emp.FullName()
	return result, nil
}

func (s *Service) mark(ctx context.Context, employeeID, method, template string, confidence float64) (MarkResult, error) {
	now := s.now()
	day := s.Day(now)
	result := MarkResult{EmployeeID: employeeID, Confidence: confidence}
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		if err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		rec, err := tx.GetForDate(ctx, employeeID, day)
		if errors.Is(err, ErrNotFound) {
			rec = Record{
				EmployeeID:          employeeID,
				Date:                day,
				Status:              StatusPresent,
				CheckInTime:         &now,
				VerificationMethod:  method,
				FingerprintTemplate: template,
				ConfidenceScore:     scorePtr(method, confidence),
			}
			if err := tx.Insert(ctx, &rec); err != nil {
				return err
			}
			result.Action = ActionCheckIn
			result.Record = rec
			return nil
		}
		if err != nil {
			return err
		}
		if rec.CheckInTime == nil || rec.CheckOutTime != nil {
			return ErrAlreadyRecorded
		}
		rec.CheckOutTime = &now
		if err := tx.Update(ctx, &rec); err != nil {
			return err
		}
		result.Action = ActionCheckOut
		result.Record = rec
		return nil
	})
	if err != nil {
		return MarkResult{}, err
	}
	return result, nil
}

func scorePtr(method string, confidence float64) *float64 {
	if method != MethodFingerprint {
		return nil
	}
	return &confidence
}

// CreateAttendance records a day for one employee. With Verify set the
// template, or a fresh capture, must match the employee's enrollment.
func (s *Service) CreateAttendance(ctx context.Context, in CreateInput) (Record, error) {
	emp, err := s.employee(ctx, in.EmployeeID)
	if err != nil {
		return Record{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if in.Status == "" {
		in.Status = StatusPresent
	}
	if in.Method == "" {
		in.Method = MethodManual
	}
	if !validStatus(in.Status) || !validMethod(in.Method) {
		return Record{}, fmt.Errorf("%w: unknown status or verification method", ErrInvalidInput)
	}
	if in.CheckInTime != nil && in.CheckOutTime != nil && in.CheckOutTime.Before(*in.CheckInTime) {
		return Record{}, fmt.Errorf("%w: check-out before check-in", ErrInvalidInput)
	}

	rec := Record{
		EmployeeID:         emp.ID,
		Date:               s.Day(in.Date),
		Status:             in.Status,
		CheckInTime:        in.CheckInTime,
		CheckOutTime:       in.CheckOutTime,
		VerificationMethod: in.Method,
		Notes:              in.Notes,
	}
	if in.Verify {
		score, template, err := s.verify(ctx, emp, in.Template)
		if err != nil {
			return Record{}, err
		}
		rec.VerificationMethod = MethodFingerprint
		rec.FingerprintTemplate = template
		rec.ConfidenceScore = &score
	}

	err = s.Store.WithTx(ctx, func(tx TxStore) error {
		if err := tx.LockEmployee(ctx, emp.ID); err != nil {
			return err
		}
		if _, err := tx.GetForDate(ctx, emp.ID, rec.Date); err == nil {
			return ErrAlreadyRecorded
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.Insert(ctx, &rec)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) verify(ctx context.Context, emp core.Employee, provided string) (float64, string, error) {
	if !emp.FingerprintEnrolled || emp.FingerprintTemplate == "" {
		return 0, "", biometric.ErrNotEnrolled
	}
	template := strings.TrimSpace(provided)
	if template == "" {
		if s.Capture == nil {
			return 0, "", fmt.Errorf("%w: no device configured", biometric.ErrDeviceFailure)
		}
		var err error
		template, err = s.Capture.Capture(ctx, emp.ID)
		if err != nil {
			return 0, "", err
		}
	}
	score, err := s.Matcher.Verify(emp.FingerprintTemplate, template)
	s.recordMatch(err == nil)
	return score, template, err
}

func (s *Service) GetRecord(ctx context.Context, recordID string) (Record, error) {
	return s.Store.GetRecord(ctx, recordID)
}

func (s *Service) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if !filter.From.IsZero() {
		filter.From = s.Day(filter.From)
	}
	if !filter.To.IsZero() {
		filter.To = s.Day(filter.To)
	}
	return s.Store.ListRecords(ctx, filter)
}

func (s *Service) employee(ctx context.Context, employeeID string) (core.Employee, error) {
	emp, err := s.Directory.GetEmployee(ctx, employeeID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		return core.Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Service) recordMatch(matched bool) {
	if s.Metrics != nil {
		s.Metrics.RecordMatch(matched)
	}
}
