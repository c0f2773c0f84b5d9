package services

import (
	"errors"
	"fmt"

	"github.com/tracecmd/backend/internal/domain"
)

// Task errors
var (
	ErrTaskNotFound      = errors.New("task: not found")
	ErrTaskNotRunning    = errors.New("task: not running")
	ErrTaskNoWork        = errors.New("task: no work to execute")
	ErrTaskNoAction      = errors.New("task: command requests no action")
	ErrTaskPersistFailed = errors.New("task: failed to persist record")
)

// TaskError is the failure of a finished task together with its category
type TaskError struct {
	TaskID string
	Code   *domain.ErrorCode
	Cause  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed with %s: %v", e.TaskID, e.Code.Name, e.Cause)
}

func (e *TaskError) Unwrap() error { return e.Cause }
