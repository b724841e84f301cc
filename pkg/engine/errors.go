package engine

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when an insight generation is triggered while
// another run holds the lock. The trigger is rejected, never queued.
var ErrRunInProgress = errors.New("insight generation already in progress")

// ValidationError marks caller-supplied parameters as unusable.
// No computation is attempted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// DataUnavailableError wraps a signal reader failure on mandatory data.
// Callers degrade to an empty result rather than failing the request.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("signal %s unavailable: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDataUnavailable reports whether err is a DataUnavailableError
func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}
