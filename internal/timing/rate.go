// Package timing provides frame/second conversion and the time-event
// record shared by the scene driver and the durable timing store.
//
// All conversions are pure functions of a fixed frame rate. Everything
// downstream of the playback loop (the scheduler, the time-event ledger,
// the compositor) measures time either in whole frame indices or in
// seconds relative to a scene's first frame; this package is the single
// place where the two are converted.
package timing

import (
	"fmt"
	"math"
)

// Rate is a fixed playback frame rate in frames per second.
//
// A Rate is valid when it is strictly positive. The zero value is invalid
// and conversions on it return zero; use New to construct a validated Rate.
type Rate float64

// New validates fps and returns it as a Rate.
func New(fps float64) (Rate, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return 0, fmt.Errorf("invalid frame rate %v: must be a positive finite number", fps)
	}
	return Rate(fps), nil
}

// FramesToSeconds converts a frame count to seconds.
func (r Rate) FramesToSeconds(frames int) float64 {
	if r <= 0 {
		return 0
	}
	return float64(frames) / float64(r)
}

// SecondsToFrames converts seconds to a whole frame count.
//
// The result is rounded up so that a duration always covers the full
// interval it names: at 30fps, 1.0s is exactly frame 30 and 1.01s is
// frame 31, never 30. Rounding up keeps event targets stable when the
// same seconds value round-trips through the store.
func (r Rate) SecondsToFrames(seconds float64) int {
	if r <= 0 {
		return 0
	}
	return int(math.Ceil(seconds * float64(r)))
}

// FrameDuration returns the length of one frame interval in seconds.
func (r Rate) FrameDuration() float64 {
	if r <= 0 {
		return 0
	}
	return 1 / float64(r)
}
