package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrNoMatch          = errors.New("no matching fingerprint")
	ErrLowConfidence    = errors.New("fingerprint confidence below threshold")
	ErrAlreadyRecorded  = errors.New("attendance already recorded")
	ErrInvalidPin       = errors.New("invalid pin")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("attendance record not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmployeeInactive = errors.New("employee inactive")
)

// NoMatchError reports the best score seen when nobody reached the threshold.
type NoMatchError struct {
	Best       float64
	Candidates int
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no matching fingerprint: best confidence %.2f across %d candidates", e.Best, e.Candidates)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

type LowConfidenceError struct {
	Score     float64
	Threshold float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("fingerprint confidence %.2f below threshold %.2f", e.Score, e.Threshold)
}

func (e *LowConfidenceError) Is(target error) bool {
	return target == ErrLowConfidence
}
