package layer

// DrumHit is one captured drum onset. TimeInLoop is measured in milliseconds
// from the start of the loop. Hits are immutable once their layer finalizes.
type DrumHit struct {
	Drum       string
	TimeInLoop float64

	// Velocity is normalized to [0, 1].
	Velocity float64
}

// PitchSample is one point of a sustained note's pitch contour: a frequency
// reading at an offset (in milliseconds) from the note's onset.
type PitchSample struct {
	OffsetMs  float64
	Frequency float64
}

// MelodicNote is one captured melodic event, used identically for bass,
// guitar and piano layers. TimeInLoop and Duration are in milliseconds.
type MelodicNote struct {
	Frequency  float64
	Note       string
	TimeInLoop float64
	Duration   float64

	// Velocity is normalized to [0, 1].
	Velocity float64

	// Contour optionally holds pitch samples captured between onset and
	// offset, ordered by offset.
	Contour []PitchSample
}
