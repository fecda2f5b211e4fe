package rhythm

import (
	"math"
	"time"

	"k8s.io/utils/clock"
)

// Source is the engine's read-only view of the audio hardware clock: a
// monotonically advancing instant plus the hardware sample rate. The engine
// never owns or advances it, it only reads.
type Source struct {
	clock.PassiveClock
	sampleRate int
}

// NewSource wraps a clock and a sample rate into a Source.
func NewSource(c clock.PassiveClock, sampleRate int) *Source {
	return &Source{
		PassiveClock: c,
		sampleRate:   sampleRate,
	}
}

// SampleRate returns the hardware sample rate in Hz.
func (s *Source) SampleRate() int {
	return s.sampleRate
}

// durationFromMs converts fractional milliseconds to a time.Duration,
// rounding to the nearest nanosecond.
func durationFromMs(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

// msBetween returns the elapsed time between two instants in fractional
// milliseconds.
func msBetween(start, end time.Time) float64 {
	return float64(end.Sub(start)) / float64(time.Millisecond)
}
