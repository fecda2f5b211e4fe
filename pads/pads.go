package pads

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"

	"github.com/loopvox/loopvox/logger"
)

// DrumSink receives manual pad taps. The recording coordinator satisfies it;
// taps flow through the same append path as detector onsets.
type DrumSink interface {
	DrumOnset(drum string, velocity float64, ts time.Time)
}

// Input is an open MIDI pad device.
type Input struct {
	drv  *rtmididrv.Driver
	in   midi.In
	once sync.Once
}

// gmDrums maps General MIDI percussion notes to the engine's drum types.
var gmDrums = map[uint8]string{
	35: "kick",
	36: "kick",
	37: "rimshot",
	38: "snare",
	39: "clap",
	40: "snare",
	41: "tom",
	42: "hihat_closed",
	43: "tom",
	45: "tom",
	46: "hihat_open",
	47: "tom",
	48: "tom",
	49: "crash",
	50: "tom",
	51: "ride",
}

// Open connects a named MIDI input port and forwards percussion NoteOn
// messages to the sink as pad taps. Port matching prefers an exact name, then
// falls back to a substring match.
func Open(deviceName string, sink DrumSink) (*Input, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("opening MIDI driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}

	var in midi.In
	for _, p := range ins {
		if p.String() == deviceName {
			in = p
			break
		}
	}
	if in == nil {
		for _, p := range ins {
			if strings.Contains(p.String(), deviceName) {
				in = p
				break
			}
		}
	}
	if in == nil {
		_ = drv.Close()
		return nil, fmt.Errorf("no MIDI input matches %q", deviceName)
	}
	if err := in.Open(); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("opening MIDI input %q: %w", in.String(), err)
	}

	log := logger.GetProjectLogger()
	if err := in.SetListener(func(data []byte, _ int64) {
		if len(data) < 3 {
			return
		}
		status := data[0]
		if status >= 0xF0 {
			// Realtime and system common messages are not taps.
			return
		}
		if status>>4 != 0x9 {
			return
		}
		velocity := data[2] & 0x7F
		if velocity == 0 {
			// NoteOn with zero velocity is a NoteOff in disguise.
			return
		}
		drum, ok := gmDrums[data[1]&0x7F]
		if !ok {
			return
		}
		sink.DrumOnset(drum, float64(velocity)/127.0, time.Now())
	}); err != nil {
		_ = in.Close()
		_ = drv.Close()
		return nil, fmt.Errorf("installing MIDI listener: %w", err)
	}

	log.WithField("device", in.String()).Info("MIDI pads connected")
	return &Input{drv: drv, in: in}, nil
}

// Close releases the input port and driver. Safe to call more than once.
func (i *Input) Close() error {
	var err error
	i.once.Do(func() {
		_ = i.in.Close()
		err = i.drv.Close()
	})
	return err
}

// ListInputs returns the names of the available MIDI input ports.
func ListInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}
