package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureProducesClip(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(48000)
	capture, err := rec.StartCapture()
	require.NoError(t, err)

	require.NoError(t, capture.Push(make([]float64, 4800)))
	require.NoError(t, capture.Push(make([]float64, 2400)))

	clip, err := rec.StopCapture(capture)
	require.NoError(t, err)

	assert.Equal(t, 7200, len(clip.Buffer.Data))
	assert.Equal(t, 48000, clip.SampleRate)
	assert.Equal(t, 1, clip.Buffer.Format.NumChannels)
	assert.InDelta(t, 150.0, clip.DurationMs(), 1e-9)
}

func TestPushAfterStopDropped(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(48000)
	capture, err := rec.StartCapture()
	require.NoError(t, err)

	clip, err := rec.StopCapture(capture)
	require.NoError(t, err)
	assert.Zero(t, clip.DurationMs())

	assert.ErrorIs(t, capture.Push([]float64{0.1}), ErrCaptureClosed)
	assert.Zero(t, clip.DurationMs())
}

func TestStopTwiceRejected(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(48000)
	capture, err := rec.StartCapture()
	require.NoError(t, err)

	_, err = rec.StopCapture(capture)
	require.NoError(t, err)

	_, err = rec.StopCapture(capture)
	assert.ErrorIs(t, err, ErrCaptureClosed)
}

func TestClipSealedFromCaptureBuffer(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(44100)
	capture, err := rec.StartCapture()
	require.NoError(t, err)

	frames := []float64{0.5, -0.5}
	require.NoError(t, capture.Push(frames))

	clip, err := rec.StopCapture(capture)
	require.NoError(t, err)

	// the clip owns its own copy of the frames
	frames[0] = 0
	assert.Equal(t, 0.5, clip.Buffer.Data[0])
}
