package rhythm

import (
	"math"
	"time"
)

// Subdivision is a quantization resolution relative to quarter notes.
type Subdivision int

const (
	// WholeBar snaps to bar boundaries (assuming a 4-beat bar).
	WholeBar Subdivision = 1

	// Quarter snaps to quarter notes.
	Quarter Subdivision = 4

	// Eighth snaps to eighth notes.
	Eighth Subdivision = 8

	// Sixteenth snaps to sixteenth notes.
	Sixteenth Subdivision = 16
)

// GridInterval returns the grid spacing in milliseconds for the subdivision
// at the current tempo.
func (t *Transport) GridInterval(sub Subdivision) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gridInterval(t.tempo, sub)
}

func gridInterval(tempo float64, sub Subdivision) float64 {
	return beatsToMilliseconds(1, tempo) / (float64(sub) / 4.0)
}

// NextGridTime returns the next upcoming grid point at or after now, for
// look-ahead scheduling. It never returns an instant earlier than now. Before
// a loop is established it returns now unchanged.
func (t *Transport) NextGridTime(now time.Time, sub Subdivision) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.established || sub <= 0 {
		return now
	}

	loopElapsed := 0.0
	if t.playing {
		loopElapsed = math.Mod(msBetween(t.startTime, now), t.loopLengthMs)
	}
	grid := gridInterval(t.tempo, sub)
	gridIndex := math.Ceil(loopElapsed / grid)
	return now.Add(durationFromMs(gridIndex*grid - loopElapsed))
}

// Quantize snaps ts to the nearest grid point at the given subdivision. While
// playing, the intra-loop remainder is snapped and the integer number of
// whole loops elapsed is added back, so an event near a loop wrap keeps the
// cycle it belonged to (a remainder snapping up to the loop length lands on
// beat zero of the next cycle). While stopped the timestamp is treated as
// absolute. A timestamp already on a grid point is returned unchanged. Before
// a loop is established, or before the transport has ever started, Quantize
// is the identity.
func (t *Transport) Quantize(ts time.Time, sub Subdivision) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.established || sub <= 0 || t.startTime.IsZero() {
		return ts
	}

	elapsed := msBetween(t.startTime, ts)
	grid := gridInterval(t.tempo, sub)

	var snapped float64
	if t.playing {
		loops := math.Floor(elapsed / t.loopLengthMs)
		remainder := elapsed - loops*t.loopLengthMs
		snapped = loops*t.loopLengthMs + math.Round(remainder/grid)*grid
	} else {
		snapped = math.Round(elapsed/grid) * grid
	}
	return t.startTime.Add(durationFromMs(snapped))
}
