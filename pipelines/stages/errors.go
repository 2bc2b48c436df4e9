// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the operator declines to proceed at a
// planner prompt. Not an error condition worth a nonzero exit by itself.
var ErrAborted = errors.New("aborted by operator")

// ErrFatalStorage aborts the run: the medium is full or read-only and any
// further write would corrupt the resume bookkeeping. Distinct from
// per-file errors so callers can exit with a "free space and --resume"
// hint.
type ErrFatalStorage struct {
	Err error
}

func (e *ErrFatalStorage) Error() string {
	return fmt.Sprintf("fatal storage error: %v", e.Err)
}

func (e *ErrFatalStorage) Unwrap() error {
	return e.Err
}

// ErrResourceLimit is an out-of-memory class failure. It is fatal but
// reported as a configuration hint: lower the worker count or batch size
// and retry with --resume.
type ErrResourceLimit struct {
	Workers   int
	BatchSize int
	Err       error
}

func (e *ErrResourceLimit) Error() string {
	return fmt.Sprintf("resource limit: %v (try reducing workers=%d or batch-size=%d)", e.Err, e.Workers, e.BatchSize)
}

func (e *ErrResourceLimit) Unwrap() error {
	return e.Err
}

// ErrVersionMismatch is returned by the planner when the store holds data
// from a different catalog release and the caller did not force a fresh
// start. Mixing releases in one store is silent corruption, not a warning.
type ErrVersionMismatch struct {
	Stored   string
	Detected string
}

func (e *ErrVersionMismatch) Error() string {
	return fmt.Sprintf("release mismatch: store has %q, input is %q (use --force-new to wipe)", e.Stored, e.Detected)
}

// Error code constants for structured reporting.
const (
	ErrCodeFatalStorage    = "FATAL_STORAGE"
	ErrCodeResourceLimit   = "RESOURCE_LIMIT"
	ErrCodeVersionMismatch = "VERSION_MISMATCH"
	ErrCodeUnknown         = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	switch err.(type) {
	case *ErrFatalStorage:
		return ErrCodeFatalStorage
	case *ErrResourceLimit:
		return ErrCodeResourceLimit
	case *ErrVersionMismatch:
		return ErrCodeVersionMismatch
	default:
		return ErrCodeUnknown
	}
}
