package core

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrDuplicateUser    = errors.New("user already linked to an employee")
	ErrAlreadyEnrolled  = errors.New("fingerprint already enrolled")
)
