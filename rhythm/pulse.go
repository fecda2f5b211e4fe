package rhythm

import (
	"github.com/fogleman/ease"
	"github.com/loopvox/loopvox/utils"
)

// offBeatLevel scales the flash on beats other than the downbeat.
const offBeatLevel = 0.6

// Pulse maps a beat phase in [0, 1) to a flash intensity in [0, 1] for the
// host's metronome indicator: full brightness on the beat, decaying over the
// beat interval. Downbeats flash harder than the rest of the bar.
func Pulse(phase float64, downBeat bool) float64 {
	v := 1.0 - ease.OutQuart(utils.Clamp(phase, 0.0, 1.0))
	if downBeat {
		return v
	}
	return v * offBeatLevel
}
