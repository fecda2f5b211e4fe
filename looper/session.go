package looper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/loopvox/loopvox/layer"
	"github.com/loopvox/loopvox/logger"
	"github.com/loopvox/loopvox/rhythm"
	"github.com/sirupsen/logrus"
)

// PassOrder is the guided flow: the drum pass is recorded first and defines
// the loop everyone else plays against.
var PassOrder = []layer.Type{
	layer.TypeDrums,
	layer.TypeBass,
	layer.TypeGuitar,
	layer.TypePiano,
	layer.TypeVoice,
}

var (
	// ErrSessionDone is returned when arming past the final pass.
	ErrSessionDone = errors.New("all passes recorded")

	// ErrNoLayers is returned when completing a session with nothing
	// recorded.
	ErrNoLayers = errors.New("no layers recorded")
)

// Session walks the five layer passes in order against a shared transport,
// collecting finished layers into an immutable session snapshot. It owns the
// transport for its lifetime; abandoning the session stops the transport.
type Session struct {
	mu        sync.Mutex
	src       *rhythm.Source
	transport *rhythm.Transport
	coord     *Coordinator
	log       *logrus.Entry

	// settings holds per-layer presentation defaults.
	settings map[layer.Type]Settings

	// detectedBPM, when positive, overrides inference for the drum pass.
	detectedBPM float64

	next   int
	layers []layer.Info
}

// NewSession creates a guided session over the given transport and
// coordinator. settings may be nil; missing layers fall back to the layer
// type as name with full volume.
func NewSession(src *rhythm.Source, transport *rhythm.Transport, coord *Coordinator, settings map[layer.Type]Settings) *Session {
	return &Session{
		src:       src,
		transport: transport,
		coord:     coord,
		log:       logger.GetProjectLogger(),
		settings:  settings,
	}
}

// SetDetectedBPM supplies an externally detected tempo for the drum pass.
func (s *Session) SetDetectedBPM(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectedBPM = bpm
}

// Begin establishes the count-in metronome at the confirmed tempo and starts
// the transport. The bar count is provisional until the drum pass resolves
// the real loop.
func (s *Session) Begin(metronomeBPM float64, beatsPerBar int) error {
	// A provisional single-bar click; the drum pass resolves the real loop.
	if err := s.transport.ConfigureLoop(metronomeBPM, rhythm.MinBars, beatsPerBar); err != nil {
		return fmt.Errorf("configuring count-in metronome: %w", err)
	}
	s.transport.Start()
	return nil
}

// NextPass returns the layer type the next pass will capture.
func (s *Session) NextPass() (layer.Type, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(PassOrder) {
		return "", false
	}
	return PassOrder[s.next], true
}

// ArmNext arms the coordinator for the next pass in the guided order.
func (s *Session) ArmNext() (layer.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(PassOrder) {
		return "", ErrSessionDone
	}
	t := PassOrder[s.next]
	if err := s.coord.Arm(t, s.settingsFor(t)); err != nil {
		return "", err
	}
	return t, nil
}

// FinishPass stops the active pass and banks the finished layer. When the
// pass is the drum pass, its capture length becomes the reference-loop
// duration: the transport is re-established from it (restarting playback on
// the resolved grid) before any later pass records against it.
func (s *Session) FinishPass() (*layer.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.coord.Stop()
	if err != nil {
		return nil, err
	}
	if res == nil {
		// Countdown cancel: the pass is retried, not skipped.
		return nil, nil
	}

	if res.Info.Type == layer.TypeDrums {
		s.transport.Stop()
		bpm, bars, err := s.transport.SetLoopFromReference(res.PassLengthMs, s.detectedBPM)
		if err != nil {
			return nil, fmt.Errorf("establishing loop from drum pass: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"bpm":  bpm,
			"bars": bars,
		}).Info("drum pass established the loop")
		s.transport.Start()
	}

	s.layers = append(s.layers, res.Info)
	s.next++
	return &res.Info, nil
}

// Complete stops the transport and returns the immutable session snapshot.
func (s *Session) Complete() (layer.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.layers) == 0 {
		return layer.Session{}, ErrNoLayers
	}
	s.transport.Stop()

	snap := s.transport.Snapshot()
	return layer.NewSession(snap.Tempo, snap.Bars, snap.BeatsPerBar, snap.LoopLengthMs, s.layers, s.src.Now()), nil
}

// Abandon discards all recorded passes and stops the transport.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, err := s.coord.Stop(); err == nil && res != nil {
		s.log.WithField("layer", res.Info.Type).Debug("discarding in-flight pass")
	}
	s.transport.Stop()
	s.layers = nil
	s.next = 0
}

// settingsFor returns the configured settings for a layer type, defaulting
// to the type name at full volume. Callers must hold s.mu.
func (s *Session) settingsFor(t layer.Type) Settings {
	if set, ok := s.settings[t]; ok {
		return set
	}
	return Settings{Name: string(t), Volume: 1.0}
}
