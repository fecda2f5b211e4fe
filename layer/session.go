package layer

import (
	"time"

	"github.com/google/uuid"
)

// Session aggregates the loop parameters and all finished layers at the
// moment a full guided recording pass completes. It is the unit handed to
// persistence and playback. Once created it is immutable; edits produce a new
// snapshot.
type Session struct {
	ID           string
	Tempo        float64
	Bars         int
	BeatsPerBar  int
	LoopLengthMs float64
	Layers       []Info
	CreatedAt    time.Time
}

// NewSession builds an immutable session snapshot. The layer slice is copied.
func NewSession(tempo float64, bars, beatsPerBar int, loopLengthMs float64, layers []Info, createdAt time.Time) Session {
	return Session{
		ID:           uuid.NewString(),
		Tempo:        tempo,
		Bars:         bars,
		BeatsPerBar:  beatsPerBar,
		LoopLengthMs: loopLengthMs,
		Layers:       append([]Info(nil), layers...),
		CreatedAt:    createdAt,
	}
}

// Layer returns the session's layer of the given type, if present.
func (s Session) Layer(t Type) (Info, bool) {
	for _, l := range s.Layers {
		if l.Type == t {
			return l, true
		}
	}
	return Info{}, false
}

// WithLayer returns a new session snapshot with the given layer replaced or
// appended. The receiver is left untouched.
func (s Session) WithLayer(info Info) Session {
	next := s
	next.Layers = append([]Info(nil), s.Layers...)
	for i, l := range next.Layers {
		if l.Type == info.Type {
			next.Layers[i] = info
			return next
		}
	}
	next.Layers = append(next.Layers, info)
	return next
}
