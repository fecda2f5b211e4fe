package layer

import (
	"github.com/google/uuid"
)

// Type identifies which instrument a layer belongs to.
type Type string

const (
	TypeDrums  Type = "drums"
	TypeBass   Type = "bass"
	TypeGuitar Type = "guitar"
	TypePiano  Type = "piano"
	TypeVoice  Type = "voice"
)

// Kind identifies how a layer's content is represented: a symbolic event log
// per instrument family, or a continuous audio capture.
type Kind string

const (
	KindDrumEvents   Kind = "drum_events"
	KindBassEvents   Kind = "bass_events"
	KindGuitarEvents Kind = "guitar_events"
	KindPianoEvents  Kind = "piano_events"
	KindAudio        Kind = "audio"
)

// KindForType returns the capture kind used for a layer type.
func KindForType(t Type) Kind {
	switch t {
	case TypeDrums:
		return KindDrumEvents
	case TypeBass:
		return KindBassEvents
	case TypeGuitar:
		return KindGuitarEvents
	case TypePiano:
		return KindPianoEvents
	default:
		return KindAudio
	}
}

// IsMelodic reports whether the kind carries melodic note events.
func (k Kind) IsMelodic() bool {
	switch k {
	case KindBassEvents, KindGuitarEvents, KindPianoEvents:
		return true
	}
	return false
}

// AudioRef is an opaque reference to a continuously captured audio buffer,
// produced by the capture collaborator. The engine never inspects samples.
type AudioRef interface {
	// DurationMs returns the capture length in milliseconds.
	DurationMs() float64
}

// Info is the immutable record of one finished layer. The kind uniquely
// determines which payload field is populated; a layer never carries more
// than one event collection.
type Info struct {
	ID       string
	Type     Type
	Kind     Kind
	Name     string
	Volume   float64
	Muted    bool
	Duration float64

	// Style tags melodic layers with the instrument's synthesis style.
	Style string

	DrumHits []DrumHit
	Notes    []MelodicNote
	Audio    AudioRef
}

// NewEventLayer builds an immutable Info for a symbolic-event layer. Exactly
// one of hits/notes is kept, chosen by the layer type; the slices are copied
// so the coordinator's working log can never mutate a published layer. The
// duration is derived from the last event, and an empty log is valid: it
// finalizes with duration 0.
func NewEventLayer(t Type, name string, volume float64, style string, hits []DrumHit, notes []MelodicNote) Info {
	info := Info{
		ID:     uuid.NewString(),
		Type:   t,
		Kind:   KindForType(t),
		Name:   name,
		Volume: volume,
		Style:  style,
	}

	switch info.Kind {
	case KindDrumEvents:
		info.DrumHits = append([]DrumHit(nil), hits...)
		for _, h := range info.DrumHits {
			if h.TimeInLoop > info.Duration {
				info.Duration = h.TimeInLoop
			}
		}
	default:
		info.Notes = make([]MelodicNote, 0, len(notes))
		for _, n := range notes {
			n.Contour = append([]PitchSample(nil), n.Contour...)
			info.Notes = append(info.Notes, n)
			if end := n.TimeInLoop + n.Duration; end > info.Duration {
				info.Duration = end
			}
		}
		if len(info.Notes) == 0 {
			info.Notes = nil
		}
	}
	return info
}

// NewAudioLayer builds an immutable Info for a continuous-audio layer.
func NewAudioLayer(t Type, name string, volume float64, ref AudioRef) Info {
	info := Info{
		ID:     uuid.NewString(),
		Type:   t,
		Kind:   KindAudio,
		Name:   name,
		Volume: volume,
		Audio:  ref,
	}
	if ref != nil {
		info.Duration = ref.DurationMs()
	}
	return info
}
