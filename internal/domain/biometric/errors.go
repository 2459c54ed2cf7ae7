package biometric

import "errors"

var (
	ErrAlreadyEnrolled  = errors.New("employee already enrolled")
	ErrNotEnrolled      = errors.New("employee not enrolled")
	ErrDeviceFailure    = errors.New("fingerprint device failure")
	ErrPersistFailed    = errors.New("enrollment could not be confirmed")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmployeeInactive = errors.New("employee inactive")
)
