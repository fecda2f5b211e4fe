package rhythm

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/loopvox/loopvox/logger"
	"github.com/loopvox/loopvox/utils"
	"github.com/sirupsen/logrus"
)

// Tempo and meter bounds. Values outside these ranges are clamped, never
// rejected (InvalidTempoRange is recovered locally).
const (
	MinTempo = 40.0
	MaxTempo = 240.0

	MinBars = 1
	MaxBars = 16

	MinBeatsPerBar     = 2
	MaxBeatsPerBar     = 8
	DefaultBeatsPerBar = 4
)

// ErrTransportRunning is returned when a loop parameter mutation is attempted
// while the transport is running. Tempo, bars and beats-per-bar may only
// change while stopped so the loop length never goes inconsistent mid-tick.
var ErrTransportRunning = errors.New("transport is running")

// BeatFunc receives beat-change notifications with the beat index within the
// loop and the bar it falls in.
type BeatFunc func(beat, bar int)

// BoundaryFunc receives loop-boundary notifications, fired once per loop wrap.
type BoundaryFunc func()

// Transport owns the authoritative musical timeline: tempo, bar count, meter
// and the derived loop length. It turns readings of the clock Source into
// loop position, beat and bar indices, and notifies registered listeners on
// beat changes and loop wraps.
//
// State machine: stopped -> running -> stopped. There is no pause; stopping
// always rewinds to the top of the loop.
type Transport struct {
	mu  sync.Mutex
	src *Source
	log *logrus.Entry

	tempo       float64
	bars        int
	beatsPerBar int

	// Derived from tempo/bars/beatsPerBar, always recomputed together.
	loopLengthMs      float64
	loopLengthSamples int

	established bool
	playing     bool
	startTime   time.Time

	// lastBeat starts at -1 so the first poll after Start always fires a
	// beat-change notification.
	lastBeat int

	beatFns     []BeatFunc
	boundaryFns []BoundaryFunc
}

// NewTransport creates a stopped transport reading time from src. No loop is
// established until ConfigureLoop or SetLoopFromReference is called.
func NewTransport(src *Source) *Transport {
	return &Transport{
		src:         src,
		log:         logger.GetProjectLogger(),
		tempo:       120.0,
		bars:        MinBars,
		beatsPerBar: DefaultBeatsPerBar,
		lastBeat:    -1,
	}
}

// AddBeatListener registers fn for beat-change notifications.
func (t *Transport) AddBeatListener(fn BeatFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beatFns = append(t.beatFns, fn)
}

// AddBoundaryListener registers fn for loop-boundary notifications.
func (t *Transport) AddBoundaryListener(fn BoundaryFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.boundaryFns = append(t.boundaryFns, fn)
}

// ConfigureLoop establishes the loop from a confirmed manual tempo. Values
// are clamped to the documented bounds. Returns ErrTransportRunning if the
// transport is running.
func (t *Transport) ConfigureLoop(bpm float64, bars, beatsPerBar int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return ErrTransportRunning
	}

	t.tempo = utils.Clamp(bpm, MinTempo, MaxTempo)
	t.bars = utils.ClampInt(bars, MinBars, MaxBars)
	t.beatsPerBar = utils.ClampInt(beatsPerBar, MinBeatsPerBar, MaxBeatsPerBar)
	t.recomputeLoopLength()
	t.established = true

	t.log.WithFields(logrus.Fields{
		"bpm":            t.tempo,
		"bars":           t.bars,
		"beats_per_bar":  t.beatsPerBar,
		"loop_length_ms": t.loopLengthMs,
	}).Debug("loop configured")
	return nil
}

// SetLoopFromReference establishes the loop from a recorded reference of the
// given duration, using tempo inference when no externally detected BPM is
// supplied. It does not start playback. Returns the resolved tempo and bar
// count, or ErrTransportRunning if the transport is running.
func (t *Transport) SetLoopFromReference(durationMs, detectedBPM float64) (float64, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return 0, 0, ErrTransportRunning
	}

	inf := InferLoop(durationMs, detectedBPM, t.beatsPerBar)
	t.tempo = inf.Tempo
	t.bars = inf.Bars
	t.recomputeLoopLength()
	t.established = true

	t.log.WithFields(logrus.Fields{
		"duration_ms":    durationMs,
		"detected_bpm":   detectedBPM,
		"bpm":            t.tempo,
		"bars":           t.bars,
		"loop_length_ms": t.loopLengthMs,
	}).Info("loop established from reference")
	return t.tempo, t.bars, nil
}

// SetTempo changes the tempo while stopped, clamped to [MinTempo, MaxTempo].
func (t *Transport) SetTempo(bpm float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return ErrTransportRunning
	}
	t.tempo = utils.Clamp(bpm, MinTempo, MaxTempo)
	t.recomputeLoopLength()
	return nil
}

// SetBars changes the bar count while stopped, clamped to [MinBars, MaxBars].
func (t *Transport) SetBars(bars int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return ErrTransportRunning
	}
	t.bars = utils.ClampInt(bars, MinBars, MaxBars)
	t.recomputeLoopLength()
	return nil
}

// SetBeatsPerBar changes the meter while stopped, clamped to
// [MinBeatsPerBar, MaxBeatsPerBar].
func (t *Transport) SetBeatsPerBar(beatsPerBar int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return ErrTransportRunning
	}
	t.beatsPerBar = utils.ClampInt(beatsPerBar, MinBeatsPerBar, MaxBeatsPerBar)
	t.recomputeLoopLength()
	return nil
}

// recomputeLoopLength derives loopLengthMs and loopLengthSamples from the
// current tempo/bars/beatsPerBar. The two are never updated independently.
// Callers must hold t.mu.
func (t *Transport) recomputeLoopLength() {
	t.loopLengthMs = float64(t.bars*t.beatsPerBar) * beatsToMilliseconds(1, t.tempo)
	t.loopLengthSamples = int(math.Round(t.loopLengthMs / 1000.0 * float64(t.src.SampleRate())))
}

// Start begins playback from the top of the loop. It is a no-op while already
// running or before any loop is established.
func (t *Transport) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing || !t.established {
		return
	}
	t.startTime = t.src.Now()
	t.lastBeat = -1
	t.playing = true
	t.log.WithField("bpm", t.tempo).Debug("transport started")
}

// Stop halts playback and rewinds to the top of the loop. Repeated calls are
// no-ops.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.playing {
		return
	}
	t.playing = false
	t.lastBeat = -1
	t.log.Debug("transport stopped")
}

// Poll reads the clock, derives the current transport snapshot and fires any
// due beat/boundary notifications. The host invokes it once per display tick
// while running; calling it twice with the same clock reading fires nothing
// the second time.
func (t *Transport) Poll() Snapshot {
	t.mu.Lock()

	snap := t.snapshotLocked()
	if !t.playing {
		t.mu.Unlock()
		return snap
	}

	var beatFns []BeatFunc
	var boundaryFns []BoundaryFunc
	if snap.Beat != t.lastBeat {
		// Suppress the boundary on the very first beat-zero right after
		// Start; fire on every subsequent wrap.
		if snap.Beat == 0 && t.lastBeat > 0 {
			boundaryFns = append(boundaryFns, t.boundaryFns...)
		}
		t.lastBeat = snap.Beat
		beatFns = append(beatFns, t.beatFns...)
	}
	t.mu.Unlock()

	for _, fn := range beatFns {
		fn(snap.Beat, snap.Bar)
	}
	for _, fn := range boundaryFns {
		fn()
	}
	return snap
}

// Snapshot returns the current transport state without firing notifications.
func (t *Transport) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// snapshotLocked computes the immutable state value. Callers must hold t.mu.
func (t *Transport) snapshotLocked() Snapshot {
	snap := Snapshot{
		Tempo:             t.tempo,
		Bars:              t.bars,
		BeatsPerBar:       t.beatsPerBar,
		LoopLengthMs:      t.loopLengthMs,
		LoopLengthSamples: t.loopLengthSamples,
		Playing:           t.playing,
		Instant:           t.src.Now(),
	}
	if !t.playing || t.loopLengthMs <= 0 {
		return snap
	}

	loopElapsed := math.Mod(msBetween(t.startTime, snap.Instant), t.loopLengthMs)
	msPerBeat := beatsToMilliseconds(1, t.tempo)
	totalBeats := t.bars * t.beatsPerBar

	snap.Position = loopElapsed / t.loopLengthMs
	snap.Beat = int(math.Floor(loopElapsed/msPerBeat)) % totalBeats
	snap.Bar = snap.Beat / t.beatsPerBar
	return snap
}

// Tempo returns the current tempo in BPM.
func (t *Transport) Tempo() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tempo
}

// Bars returns the loop length in bars.
func (t *Transport) Bars() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bars
}

// BeatsPerBar returns the meter.
func (t *Transport) BeatsPerBar() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.beatsPerBar
}

// LoopLengthMs returns the loop length in milliseconds, or 0 before a loop is
// established.
func (t *Transport) LoopLengthMs() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.established {
		return 0
	}
	return t.loopLengthMs
}

// IsPlaying reports whether the transport is running.
func (t *Transport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Established reports whether a loop reference exists.
func (t *Transport) Established() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.established
}

// beatsToMilliseconds calculates milliseconds for given beats and tempo.
func beatsToMilliseconds(beats int, tempo float64) float64 {
	return (60000.0 / tempo) * float64(beats)
}
