package audio

import (
	"errors"
	"sync"

	gaudio "github.com/go-audio/audio"
)

// ErrCaptureClosed is returned when a capture handle is stopped twice or
// pushed to after it has been sealed.
var ErrCaptureClosed = errors.New("capture already stopped")

// Recorder is the continuous-audio capture collaborator: the recording
// coordinator opens a capture window, the host feeds samples in, and stopping
// the window seals an immutable clip.
type Recorder interface {
	StartCapture() (*Capture, error)
	StopCapture(c *Capture) (*Clip, error)
}

// Clip is a finished continuous capture: a mono float buffer plus its sample
// rate. It is immutable once produced.
type Clip struct {
	Buffer     *gaudio.FloatBuffer
	SampleRate int
}

// DurationMs returns the clip length in milliseconds.
func (c *Clip) DurationMs() float64 {
	if c == nil || c.Buffer == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Buffer.Data)) / float64(c.SampleRate) * 1000.0
}

// Capture is an open capture window. Samples may be pushed until the window
// is stopped; pushes after that are dropped.
type Capture struct {
	mu     sync.Mutex
	open   bool
	frames []float64
}

// Push appends mono sample frames to the capture window. Frames arriving
// after the window was stopped are dropped.
func (c *Capture) Push(frames []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return ErrCaptureClosed
	}
	c.frames = append(c.frames, frames...)
	return nil
}

// MemoryRecorder is an in-memory Recorder. It holds no device state; the host
// pumps microphone frames into the open capture each tick.
type MemoryRecorder struct {
	sampleRate int
}

// NewMemoryRecorder creates a recorder producing clips at the given sample
// rate.
func NewMemoryRecorder(sampleRate int) *MemoryRecorder {
	return &MemoryRecorder{sampleRate: sampleRate}
}

// StartCapture opens a new capture window.
func (r *MemoryRecorder) StartCapture() (*Capture, error) {
	return &Capture{open: true}, nil
}

// StopCapture seals the capture window into an immutable clip. Stopping an
// already sealed capture returns ErrCaptureClosed.
func (r *MemoryRecorder) StopCapture(c *Capture) (*Clip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCaptureClosed
	}
	c.open = false

	data := append([]float64(nil), c.frames...)
	return &Clip{
		Buffer: &gaudio.FloatBuffer{
			Data: data,
			Format: &gaudio.Format{
				NumChannels: 1,
				SampleRate:  r.sampleRate,
			},
		},
		SampleRate: r.sampleRate,
	}, nil
}
