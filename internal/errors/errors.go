package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskGone          = errors.New("task expired")
	ErrTaskNotReady      = errors.New("task not ready")
	ErrDuplicateID       = errors.New("duplicate task id")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrQueueFull         = errors.New("download queue is full")
	ErrServiceClosed     = errors.New("service is shutting down")
)

// ValidationError describes malformed submission input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TaskFailedError is returned when a file is requested for a task whose extraction failed.
type TaskFailedError struct {
	Category string
	Message  string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task failed (%s): %s", e.Category, e.Message)
}

// StorageError wraps a filesystem failure during serve or cleanup.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
