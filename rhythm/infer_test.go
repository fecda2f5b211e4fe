package rhythm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferLoopPrefersComfortableFourBars(t *testing.T) {
	t.Parallel()

	// 8s over 4 bars of 4/4 is 120 BPM, squarely in the comfortable range
	inf := InferLoop(8000, 0, 4)
	assert.Equal(t, 120.0, inf.Tempo)
	assert.Equal(t, 4, inf.Bars)
}

func TestInferLoopWideRangeBeatsEightBarCandidate(t *testing.T) {
	t.Parallel()

	// 16s: the 4-bar candidate is 60 BPM, outside [80,160] but inside
	// [60,200], so it still wins over the 8-bar candidate (120 BPM)
	inf := InferLoop(16000, 0, 4)
	assert.Equal(t, 60.0, inf.Tempo)
	assert.Equal(t, 4, inf.Bars)
}

func TestInferLoopFallsBackToEightBars(t *testing.T) {
	t.Parallel()

	// 60s: the 4-bar candidate is 16 BPM, implausible either way; the
	// 8-bar candidate (32 BPM) is used and clamped to the tempo floor
	inf := InferLoop(60000, 0, 4)
	assert.Equal(t, 40.0, inf.Tempo)
	// bars re-derived from the final clamped tempo: 40 beats over 4/4
	assert.Equal(t, 10, inf.Bars)
}

func TestInferLoopTrustsDetectedBPM(t *testing.T) {
	t.Parallel()

	inf := InferLoop(8000, 100, 4)
	assert.Equal(t, 100.0, inf.Tempo)
	// 8000ms at 100 BPM is 13.3 beats, 3.3 bars, rounded to 3
	assert.Equal(t, 3, inf.Bars)
}

func TestInferLoopClampsAndBoundsBars(t *testing.T) {
	t.Parallel()

	// absurdly short reference: both candidates exceed the tempo ceiling
	inf := InferLoop(2000, 0, 4)
	assert.Equal(t, 240.0, inf.Tempo)
	assert.Equal(t, 2, inf.Bars)

	// bars never drop below one
	inf = InferLoop(400, 300, 4)
	assert.Equal(t, 240.0, inf.Tempo)
	assert.Equal(t, 1, inf.Bars)
}
