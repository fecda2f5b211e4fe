package looper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clock "k8s.io/utils/clock/testing"

	"github.com/loopvox/loopvox/audio"
	"github.com/loopvox/loopvox/layer"
	"github.com/loopvox/loopvox/rhythm"
)

type sessionRig struct {
	fc        *clock.FakePassiveClock
	transport *rhythm.Transport
	coord     *Coordinator
	session   *Session
}

func newSessionRig(t *testing.T) *sessionRig {
	t.Helper()

	fc := clock.NewFakePassiveClock(time.Unix(100, 0))
	src := rhythm.NewSource(fc, 48000)
	transport := rhythm.NewTransport(src)
	coord := NewCoordinator(src, transport, audio.NewMemoryRecorder(48000), DefaultCountdownBeats)
	session := NewSession(src, transport, coord, map[layer.Type]Settings{
		layer.TypeDrums: {Name: "Drums", Volume: 0.8},
	})
	return &sessionRig{fc: fc, transport: transport, coord: coord, session: session}
}

func (r *sessionRig) tick(d time.Duration) {
	r.fc.SetTime(r.fc.Now().Add(d))
	r.transport.Poll()
}

// recordDrumPass runs the drum pass with a capture window of exactly
// lengthMs and finishes it.
func (r *sessionRig) recordDrumPass(t *testing.T, lengthMs int) *layer.Info {
	t.Helper()

	typ, err := r.session.ArmNext()
	require.NoError(t, err)
	require.Equal(t, layer.TypeDrums, typ)

	r.transport.Poll()
	for i := 0; i < DefaultCountdownBeats-1; i++ {
		r.tick(500 * time.Millisecond)
	}
	require.Equal(t, StateRecording, r.coord.State())

	r.tick(250 * time.Millisecond)
	r.coord.TapPad("kick", 0.9)
	r.fc.SetTime(r.fc.Now().Add(time.Duration(lengthMs-250) * time.Millisecond))

	info, err := r.session.FinishPass()
	require.NoError(t, err)
	require.NotNil(t, info)
	return info
}

func TestGuidedFlowDrumPassEstablishesLoop(t *testing.T) {
	t.Parallel()

	rig := newSessionRig(t)
	require.NoError(t, rig.session.Begin(120, 4))
	require.True(t, rig.transport.IsPlaying())

	info := rig.recordDrumPass(t, 8000)
	assert.Equal(t, layer.TypeDrums, info.Type)
	assert.Equal(t, "Drums", info.Name)

	// an 8s reference resolves to 120 BPM over 4 bars, and the transport is
	// restarted on the new grid
	assert.Equal(t, 120.0, rig.transport.Tempo())
	assert.Equal(t, 4, rig.transport.Bars())
	assert.InDelta(t, 8000.0, rig.transport.LoopLengthMs(), 1e-9)
	assert.True(t, rig.transport.IsPlaying())

	next, ok := rig.session.NextPass()
	require.True(t, ok)
	assert.Equal(t, layer.TypeBass, next)
}

func TestGuidedFlowDetectedBPMOverridesInference(t *testing.T) {
	t.Parallel()

	rig := newSessionRig(t)
	rig.session.SetDetectedBPM(100)
	require.NoError(t, rig.session.Begin(120, 4))

	rig.recordDrumPass(t, 9600) // 16 beats at 100 BPM

	assert.Equal(t, 100.0, rig.transport.Tempo())
	assert.Equal(t, 4, rig.transport.Bars())
}

func TestSessionCompleteSnapshot(t *testing.T) {
	t.Parallel()

	rig := newSessionRig(t)
	require.NoError(t, rig.session.Begin(120, 4))
	rig.recordDrumPass(t, 8000)

	// bass pass with a single note
	typ, err := rig.session.ArmNext()
	require.NoError(t, err)
	require.Equal(t, layer.TypeBass, typ)

	rig.tick(1 * time.Millisecond)
	for i := 0; i < DefaultCountdownBeats; i++ {
		rig.tick(500 * time.Millisecond)
	}
	require.Equal(t, StateRecording, rig.coord.State())

	rig.tick(100 * time.Millisecond)
	rig.coord.MelodicOnset(110, "A2", 0.5, rig.fc.Now())
	rig.tick(200 * time.Millisecond)
	rig.coord.MelodicOffset(rig.fc.Now(), 0)

	_, err = rig.session.FinishPass()
	require.NoError(t, err)

	data, err := rig.session.Complete()
	require.NoError(t, err)

	assert.NotEmpty(t, data.ID)
	assert.Equal(t, 120.0, data.Tempo)
	assert.Equal(t, 4, data.Bars)
	assert.Equal(t, 4, data.BeatsPerBar)
	assert.InDelta(t, 8000.0, data.LoopLengthMs, 1e-9)
	require.Len(t, data.Layers, 2)
	assert.Equal(t, layer.TypeDrums, data.Layers[0].Type)
	assert.Equal(t, layer.TypeBass, data.Layers[1].Type)
	assert.False(t, rig.transport.IsPlaying())
}

func TestSessionCompleteWithoutLayers(t *testing.T) {
	t.Parallel()

	rig := newSessionRig(t)
	require.NoError(t, rig.session.Begin(120, 4))

	_, err := rig.session.Complete()
	assert.ErrorIs(t, err, ErrNoLayers)
}

func TestSessionAbandonResets(t *testing.T) {
	t.Parallel()

	rig := newSessionRig(t)
	require.NoError(t, rig.session.Begin(120, 4))
	rig.recordDrumPass(t, 8000)

	rig.session.Abandon()
	assert.False(t, rig.transport.IsPlaying())

	next, ok := rig.session.NextPass()
	require.True(t, ok)
	assert.Equal(t, layer.TypeDrums, next)
}
