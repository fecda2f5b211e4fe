package rhythm

import (
	"math"

	"github.com/loopvox/loopvox/utils"
)

// Inference is a resolved (tempo, bars) pair for a reference loop.
type Inference struct {
	Tempo float64
	Bars  int
}

// InferLoop resolves the tempo and bar count for a reference loop of the
// given duration. When detectedBPM is positive it is trusted outright.
// Otherwise the tempo is guessed from two candidates, one assuming the
// recording spans 4 bars and one assuming 8:
//
//  1. the 4-bar candidate, if it lands in the comfortable 80-160 BPM range
//  2. else the 4-bar candidate, if it lands in the wider 60-200 range
//  3. else the 8-bar candidate, unconditionally
//
// This encodes a prior that most loops are 4 bars long and that comfortable
// tempos cluster around 80-160 BPM. It is a heuristic, not a detector: a
// double- or half-tempo loop can be misclassified. Changing the thresholds
// changes user-visible behavior.
//
// Whichever way the tempo was picked, the bar count is re-derived from the
// final tempo rather than taken from the winning candidate's bar assumption,
// since the two can disagree after rounding.
func InferLoop(durationMs, detectedBPM float64, beatsPerBar int) Inference {
	if beatsPerBar <= 0 {
		beatsPerBar = DefaultBeatsPerBar
	}

	var bpm float64
	if detectedBPM > 0 {
		bpm = detectedBPM
	} else {
		bpm4 := candidateTempo(durationMs, 4, beatsPerBar)
		bpm8 := candidateTempo(durationMs, 8, beatsPerBar)
		switch {
		case bpm4 >= 80 && bpm4 <= 160:
			bpm = bpm4
		case bpm4 >= 60 && bpm4 <= 200:
			bpm = bpm4
		default:
			// The 8-bar candidate is used only once the 4-bar candidate is
			// implausible even in the wide range.
			bpm = bpm8
		}
	}
	bpm = utils.Clamp(bpm, MinTempo, MaxTempo)

	totalBeats := durationMs / beatsToMilliseconds(1, bpm)
	bars := int(math.Round(totalBeats / float64(beatsPerBar)))
	bars = utils.ClampInt(bars, MinBars, MaxBars)

	return Inference{Tempo: bpm, Bars: bars}
}

// candidateTempo returns the BPM a recording of durationMs would have if it
// spanned exactly the given number of bars.
func candidateTempo(durationMs float64, bars, beatsPerBar int) float64 {
	if durationMs <= 0 {
		return 0
	}
	totalBeats := float64(bars * beatsPerBar)
	return totalBeats * 60000.0 / durationMs
}
