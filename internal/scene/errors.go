package scene

import (
	"errors"
	"fmt"
)

// PlaybackError represents a fatal error surfaced from a scene's
// playback. Protocol violations (bad yields, out-of-order state
// transitions, unstable layout) are warnings, not PlaybackErrors; only
// a failed routine terminates scheduling.
type PlaybackError struct {
	// Code identifies the error category.
	Code PlaybackErrorCode

	// Scene names the affected scene.
	Scene string

	// Frame is the playhead position when the error occurred.
	Frame int

	// Err is the underlying cause.
	Err error
}

// PlaybackErrorCode categorizes playback errors.
type PlaybackErrorCode string

const (
	// ErrCodeRoutineFailed indicates the animation routine returned an
	// error, typically an unhandled awaitable failure.
	ErrCodeRoutineFailed PlaybackErrorCode = "ROUTINE_FAILED"

	// ErrCodeStoreFailed indicates the durable timing store rejected a
	// read or write.
	ErrCodeStoreFailed PlaybackErrorCode = "STORE_FAILED"
)

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s: scene %q frame %d: %v", e.Code, e.Scene, e.Frame, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// IsRoutineFailure reports whether err is a routine failure.
// Uses errors.As to handle wrapped errors.
func IsRoutineFailure(err error) bool {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeRoutineFailed
	}
	return false
}
