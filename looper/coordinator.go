package looper

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/loopvox/loopvox/audio"
	"github.com/loopvox/loopvox/layer"
	"github.com/loopvox/loopvox/logger"
	"github.com/loopvox/loopvox/rhythm"
	"github.com/loopvox/loopvox/utils"
	"github.com/sirupsen/logrus"
)

// State is the recording state machine for the active layer pass.
type State string

const (
	// StateIdle means no pass is active.
	StateIdle State = "idle"

	// StateWaiting means the countdown is running; capture has not begun.
	StateWaiting State = "waiting"

	// StateRecording means detector events are being appended to the log.
	StateRecording State = "recording"

	// StateProcessing means the pass is being finalized; late events are
	// dropped.
	StateProcessing State = "processing"
)

// DefaultCountdownBeats is the length of the count-in before capture begins.
const DefaultCountdownBeats = 4

// ErrNotIdle is returned when a pass is armed while another is in flight.
var ErrNotIdle = errors.New("a recording pass is already active")

// Settings carries the per-layer presentation fields stamped onto the
// finalized layer.
type Settings struct {
	Name   string
	Volume float64

	// Style tags melodic layers with the instrument's synthesis style.
	Style string
}

// Result is one finished recording pass.
type Result struct {
	Info layer.Info

	// PassLengthMs is the wall-clock length of the capture window. The drum
	// pass hands it to the transport as the reference-loop duration; later
	// passes only need Info.
	PassLengthMs float64
}

// openNote is an in-flight melodic note: onset seen, offset still pending.
type openNote struct {
	frequency float64
	note      string
	velocity  float64
	onset     time.Time
	timeInLoop float64
	contour    []layer.PitchSample
}

// Coordinator runs the per-layer recording state machine:
// idle -> waiting(countdown) -> recording -> processing -> idle. The
// countdown is driven by transport beat notifications; detector callbacks are
// appended to the working log only while recording. The working log is owned
// exclusively by the coordinator until finalize publishes an immutable
// layer.Info.
type Coordinator struct {
	mu        sync.Mutex
	src       *rhythm.Source
	transport *rhythm.Transport
	recorder  audio.Recorder
	log       *logrus.Entry

	countdownBeats int

	state     State
	active    layer.Type
	kind      layer.Kind
	settings  Settings
	countdown int

	recordStart time.Time
	hits        []layer.DrumHit
	notes       []layer.MelodicNote
	open        *openNote
	capture     *audio.Capture
}

// NewCoordinator creates an idle coordinator and subscribes it to the
// transport's beat notifications. countdownBeats <= 0 falls back to
// DefaultCountdownBeats.
func NewCoordinator(src *rhythm.Source, transport *rhythm.Transport, recorder audio.Recorder, countdownBeats int) *Coordinator {
	if countdownBeats <= 0 {
		countdownBeats = DefaultCountdownBeats
	}
	c := &Coordinator{
		src:            src,
		transport:      transport,
		recorder:       recorder,
		log:            logger.GetProjectLogger(),
		countdownBeats: countdownBeats,
		state:          StateIdle,
	}
	transport.AddBeatListener(c.handleBeat)
	return c
}

// State returns the current recording state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns the layer type currently being captured, if any.
func (c *Coordinator) Active() (layer.Type, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return "", false
	}
	return c.active, true
}

// CountdownRemaining returns the beats left in the count-in, or 0 outside the
// waiting state.
func (c *Coordinator) CountdownRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateWaiting {
		return 0
	}
	return c.countdown
}

// Arm begins a pass for the given layer type: the coordinator enters the
// waiting state and capture starts once the countdown of beats has elapsed.
// Returns ErrNotIdle if a pass is already in flight.
func (c *Coordinator) Arm(t layer.Type, settings Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrNotIdle
	}
	c.state = StateWaiting
	c.active = t
	c.kind = layer.KindForType(t)
	c.settings = settings
	c.countdown = c.countdownBeats

	c.log.WithFields(logrus.Fields{
		"layer":     t,
		"kind":      c.kind,
		"countdown": c.countdown,
	}).Info("pass armed")
	return nil
}

// handleBeat drives the countdown from transport beat notifications.
func (c *Coordinator) handleBeat(beat, bar int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWaiting {
		return
	}
	c.countdown--
	if c.countdown > 0 {
		return
	}
	c.beginRecordingLocked()
}

// beginRecordingLocked transitions waiting -> recording. Callers must hold
// c.mu.
func (c *Coordinator) beginRecordingLocked() {
	c.state = StateRecording
	c.recordStart = c.src.Now()

	if c.kind == layer.KindAudio {
		capture, err := c.recorder.StartCapture()
		if err != nil {
			c.log.WithError(err).Error("could not open capture window, aborting pass")
			c.resetLocked()
			return
		}
		c.capture = capture
	}
	c.log.WithField("layer", c.active).Info("recording")
}

// Capture returns the open capture window for an audio pass so the host can
// pump microphone frames into it.
func (c *Coordinator) Capture() (*audio.Capture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording || c.capture == nil {
		return nil, false
	}
	return c.capture, true
}

// DrumOnset appends a drum hit from the onset detector. Events arriving
// outside the recording state, or during a non-drum pass, are dropped. The
// hit time is taken relative to the pass's own start instant: the drum pass
// is the reference recording that defines the loop, so there is no loop
// length to wrap against yet.
func (c *Coordinator) DrumOnset(drum string, velocity float64, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording || c.kind != layer.KindDrumEvents {
		c.dropLocked("drum onset")
		return
	}
	c.hits = append(c.hits, layer.DrumHit{
		Drum:       drum,
		TimeInLoop: msSince(c.recordStart, ts),
		Velocity:   utils.Clamp(velocity, 0, 1),
	})
}

// TapPad appends a manual pad tap stamped with the current clock reading.
// Taps flow through the identical append path as detector onsets; once
// captured the two are indistinguishable.
func (c *Coordinator) TapPad(drum string, velocity float64) {
	c.DrumOnset(drum, velocity, c.src.Now())
}

// MelodicOnset opens a note from the pitch detector. The onset time is
// wrapped into the already-established loop; an onset landing exactly on the
// loop boundary wraps to 0 of the next cycle. An onset arriving while a note
// is still open closes the open note at the new onset.
func (c *Coordinator) MelodicOnset(frequency float64, note string, velocity float64, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording || !c.kind.IsMelodic() {
		c.dropLocked("melodic onset")
		return
	}
	if c.open != nil {
		c.closeOpenNoteLocked(ts, 0)
	}

	timeInLoop := msSince(c.recordStart, ts)
	if loopLen := c.transport.LoopLengthMs(); loopLen > 0 {
		timeInLoop = math.Mod(timeInLoop, loopLen)
	}
	c.open = &openNote{
		frequency:  frequency,
		note:       note,
		velocity:   utils.Clamp(velocity, 0, 1),
		onset:      ts,
		timeInLoop: timeInLoop,
	}
}

// PitchSample appends a contour point to the open note. Samples with no open
// note are dropped.
func (c *Coordinator) PitchSample(frequency float64, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording || c.open == nil {
		return
	}
	c.open.contour = append(c.open.contour, layer.PitchSample{
		OffsetMs:  msSince(c.open.onset, ts),
		Frequency: frequency,
	})
}

// MelodicOffset closes the open note. When the detector supplies a duration
// it is trusted; otherwise the duration is measured from the onset.
func (c *Coordinator) MelodicOffset(ts time.Time, durationMs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording || c.open == nil {
		c.dropLocked("melodic offset")
		return
	}
	c.closeOpenNoteLocked(ts, durationMs)
}

// closeOpenNoteLocked finalizes the in-flight note into the working log.
// Callers must hold c.mu.
func (c *Coordinator) closeOpenNoteLocked(ts time.Time, durationMs float64) {
	n := c.open
	c.open = nil

	if durationMs <= 0 {
		durationMs = msSince(n.onset, ts)
	}
	c.notes = append(c.notes, layer.MelodicNote{
		Frequency:  n.frequency,
		Note:       n.note,
		TimeInLoop: n.timeInLoop,
		Duration:   durationMs,
		Velocity:   n.velocity,
		Contour:    n.contour,
	})
}

// Stop finalizes the active pass and returns the immutable layer. Stopping
// during the countdown cancels the pass without producing a layer. Stopping
// while idle is a no-op. A pass with zero captured events is valid and
// finalizes to an empty layer with duration 0.
func (c *Coordinator) Stop() (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle, StateProcessing:
		return nil, nil
	case StateWaiting:
		c.log.WithField("layer", c.active).Info("pass cancelled during countdown")
		c.resetLocked()
		return nil, nil
	}

	// Anything the detectors push from here on is late and must not reach
	// the finalized layer.
	c.state = StateProcessing
	stopTime := c.src.Now()

	if c.open != nil {
		c.closeOpenNoteLocked(stopTime, 0)
	}

	res := &Result{PassLengthMs: msSince(c.recordStart, stopTime)}

	if c.kind == layer.KindAudio {
		clip, err := c.recorder.StopCapture(c.capture)
		if err != nil {
			c.resetLocked()
			return nil, err
		}
		res.Info = layer.NewAudioLayer(c.active, c.settings.Name, c.settings.Volume, clip)
	} else {
		res.Info = layer.NewEventLayer(c.active, c.settings.Name, c.settings.Volume, c.settings.Style, c.hits, c.notes)
	}

	c.log.WithFields(logrus.Fields{
		"layer":       c.active,
		"events":      len(c.hits) + len(c.notes),
		"duration_ms": res.Info.Duration,
	}).Info("pass finalized")

	c.resetLocked()
	return res, nil
}

// resetLocked returns the coordinator to idle and clears the working log.
// Callers must hold c.mu.
func (c *Coordinator) resetLocked() {
	c.state = StateIdle
	c.active = ""
	c.kind = ""
	c.settings = Settings{}
	c.countdown = 0
	c.recordStart = time.Time{}
	c.hits = nil
	c.notes = nil
	c.open = nil
	c.capture = nil
}

// dropLocked logs a dropped detector event. Late or misdirected events are
// never an error. Callers must hold c.mu.
func (c *Coordinator) dropLocked(what string) {
	c.log.WithFields(logrus.Fields{
		"event": what,
		"state": c.state,
	}).Debug("dropped detector event")
}

// msSince returns the elapsed time between two instants in fractional
// milliseconds.
func msSince(start, end time.Time) float64 {
	return float64(end.Sub(start)) / float64(time.Millisecond)
}
