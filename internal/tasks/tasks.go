package tasks

import (
	"errors"
	"fmt"
)

// StageError reports the stage at which an ingestion or deletion stopped.
//
// Orphans lists artifact paths that were stored before the failure and were not removed.
type StageError struct {
	Stage   Stage
	Err     error
	Orphans []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AsStageError unwraps err into a [StageError].
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func fail(stage Stage, err error, orphans ...string) *StageError {
	return &StageError{Stage: stage, Err: err, Orphans: orphans}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
