package layer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindDrumEvents, KindForType(TypeDrums))
	assert.Equal(t, KindBassEvents, KindForType(TypeBass))
	assert.Equal(t, KindGuitarEvents, KindForType(TypeGuitar))
	assert.Equal(t, KindPianoEvents, KindForType(TypePiano))
	assert.Equal(t, KindAudio, KindForType(TypeVoice))
}

func TestKindIsMelodic(t *testing.T) {
	t.Parallel()

	assert.True(t, KindBassEvents.IsMelodic())
	assert.True(t, KindGuitarEvents.IsMelodic())
	assert.True(t, KindPianoEvents.IsMelodic())
	assert.False(t, KindDrumEvents.IsMelodic())
	assert.False(t, KindAudio.IsMelodic())
}

func TestNewEventLayerCarriesOnePayload(t *testing.T) {
	t.Parallel()

	drums := NewEventLayer(TypeDrums, "Drums", 0.8, "", []DrumHit{{Drum: "kick", TimeInLoop: 100}}, nil)
	assert.NotEmpty(t, drums.ID)
	assert.Len(t, drums.DrumHits, 1)
	assert.Nil(t, drums.Notes)
	assert.Nil(t, drums.Audio)

	bass := NewEventLayer(TypeBass, "Bass", 0.8, "fingered", nil, []MelodicNote{{Note: "A2", TimeInLoop: 50, Duration: 200}})
	assert.Len(t, bass.Notes, 1)
	assert.Nil(t, bass.DrumHits)
	assert.Equal(t, "fingered", bass.Style)
}

func TestNewEventLayerDerivesDuration(t *testing.T) {
	t.Parallel()

	drums := NewEventLayer(TypeDrums, "Drums", 0.8, "", []DrumHit{
		{Drum: "kick", TimeInLoop: 100},
		{Drum: "snare", TimeInLoop: 850},
	}, nil)
	assert.InDelta(t, 850.0, drums.Duration, 1e-9)

	piano := NewEventLayer(TypePiano, "Piano", 0.8, "grand", nil, []MelodicNote{
		{Note: "C4", TimeInLoop: 200, Duration: 400},
		{Note: "E4", TimeInLoop: 500, Duration: 50},
	})
	assert.InDelta(t, 600.0, piano.Duration, 1e-9)

	empty := NewEventLayer(TypeDrums, "Drums", 0.8, "", nil, nil)
	assert.Zero(t, empty.Duration)
	assert.Empty(t, empty.DrumHits)
}

func TestNewEventLayerCopiesWorkingLog(t *testing.T) {
	t.Parallel()

	hits := []DrumHit{{Drum: "kick", TimeInLoop: 100}}
	info := NewEventLayer(TypeDrums, "Drums", 0.8, "", hits, nil)

	hits[0].Drum = "mutated"
	assert.Equal(t, "kick", info.DrumHits[0].Drum)

	contour := []PitchSample{{OffsetMs: 10, Frequency: 440}}
	notes := []MelodicNote{{Note: "A4", Contour: contour}}
	bass := NewEventLayer(TypeBass, "Bass", 0.8, "", nil, notes)

	contour[0].Frequency = 0
	assert.Equal(t, 440.0, bass.Notes[0].Contour[0].Frequency)
}

type stubAudioRef struct{ ms float64 }

func (s stubAudioRef) DurationMs() float64 { return s.ms }

func TestNewAudioLayer(t *testing.T) {
	t.Parallel()

	voice := NewAudioLayer(TypeVoice, "Voice", 0.8, stubAudioRef{ms: 4000})
	assert.Equal(t, KindAudio, voice.Kind)
	assert.InDelta(t, 4000.0, voice.Duration, 1e-9)
	assert.Nil(t, voice.DrumHits)
	assert.Nil(t, voice.Notes)

	missing := NewAudioLayer(TypeVoice, "Voice", 0.8, nil)
	assert.Zero(t, missing.Duration)
}

func TestSessionSnapshotImmutable(t *testing.T) {
	t.Parallel()

	layers := []Info{NewEventLayer(TypeDrums, "Drums", 0.8, "", nil, nil)}
	s := NewSession(120, 4, 4, 8000, layers, time.Unix(100, 0))

	require.Len(t, s.Layers, 1)
	layers[0].Name = "mutated"
	assert.Equal(t, "Drums", s.Layers[0].Name)
}

func TestSessionWithLayer(t *testing.T) {
	t.Parallel()

	drums := NewEventLayer(TypeDrums, "Drums", 0.8, "", nil, nil)
	s := NewSession(120, 4, 4, 8000, []Info{drums}, time.Unix(100, 0))

	bass := NewEventLayer(TypeBass, "Bass", 0.8, "fingered", nil, nil)
	next := s.WithLayer(bass)
	assert.Len(t, next.Layers, 2)
	assert.Len(t, s.Layers, 1)

	// replacing an existing layer keeps the original snapshot intact
	quiet := drums
	quiet.Muted = true
	replaced := next.WithLayer(quiet)
	got, ok := replaced.Layer(TypeDrums)
	require.True(t, ok)
	assert.True(t, got.Muted)

	got, ok = next.Layer(TypeDrums)
	require.True(t, ok)
	assert.False(t, got.Muted)
}
