package rhythm

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is an immutable value probing the timeline established by a
// Transport at a single instant. Readers receive copies, never a live handle,
// so a poll can never tear a read.
type Snapshot struct {
	// Tempo is the loop tempo in BPM.
	Tempo float64

	// Bars is the loop length in bars.
	Bars int

	// BeatsPerBar is the meter.
	BeatsPerBar int

	// LoopLengthMs and LoopLengthSamples are the derived loop length.
	LoopLengthMs      float64
	LoopLengthSamples int

	// Position is the normalized progress through the loop in [0, 1).
	Position float64

	// Beat is the beat index within the loop, in [0, Bars*BeatsPerBar).
	Beat int

	// Bar is the bar index within the loop, in [0, Bars).
	Bar int

	// Playing reports whether the transport was running.
	Playing bool

	// Instant is the clock reading the snapshot was computed from.
	Instant time.Time
}

// BeatInterval returns the beat length in milliseconds.
func (s Snapshot) BeatInterval() float64 {
	return beatsToMilliseconds(1, s.Tempo)
}

// BarInterval returns the bar length in milliseconds.
func (s Snapshot) BarInterval() float64 {
	return beatsToMilliseconds(s.BeatsPerBar, s.Tempo)
}

// BeatWithinBar returns the beat number relative to the start of its bar.
func (s Snapshot) BeatWithinBar() int {
	if s.BeatsPerBar == 0 {
		return 0
	}
	return s.Beat % s.BeatsPerBar
}

// IsDownBeat checks whether the current beat is the first beat in its bar.
func (s Snapshot) IsDownBeat() bool {
	return s.BeatWithinBar() == 0
}

// BeatPhase returns the fractional progress through the current beat in
// [0, 1).
func (s Snapshot) BeatPhase() float64 {
	if s.LoopLengthMs <= 0 {
		return 0
	}
	loopElapsed := s.Position * s.LoopLengthMs
	interval := s.BeatInterval()
	ratio := loopElapsed / interval
	return ratio - math.Floor(ratio)
}

// Marker returns the snapshot position as "bar.beat", both one-based.
func (s Snapshot) Marker() string {
	return fmt.Sprintf("%d.%d", s.Bar+1, s.BeatWithinBar()+1)
}
