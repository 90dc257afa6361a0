package util

import "errors"

var (
	ErrBlockTestNotFound   = errors.New("block test not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrResultNotFound      = errors.New("test result not found")
	ErrNoEligibleSubjects  = errors.New("student has no eligible subjects")
	ErrCodeSpaceExhausted  = errors.New("variant code space exhausted")
	ErrEmptyStudentList    = errors.New("student list is empty")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidQuestion     = errors.New("invalid question payload")
	ErrGenerationConflict  = errors.New("variant generation already running for this test")
	ErrStudentConfigExists = errors.New("student test config already exists")
)
