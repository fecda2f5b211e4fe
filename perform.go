package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/loopvox/loopvox/audio"
	"github.com/loopvox/loopvox/layer"
	"github.com/loopvox/loopvox/logger"
	"github.com/loopvox/loopvox/looper"
	"github.com/loopvox/loopvox/pads"
	"github.com/loopvox/loopvox/rhythm"
)

const (
	// GlobalFPS is the poll rate of the host tick loop.
	GlobalFPS = 40

	flashBarWidth = 24
	flashFullChar = "█"
	flashDimChar  = "░"
)

var performBPM float64

var performCmd = &cobra.Command{
	Use:   "perform",
	Short: "Run a guided recording session against the live clock",
	Long: `Start the transport at the metronome tempo and walk the guided layer
passes. The drum pass is armed immediately; pad hits arrive from the
configured MIDI device. Ctrl+C finishes the current pass and prints the
session summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPerform(cmd.Context())
	},
}

func init() {
	performCmd.Flags().Float64Var(&performBPM, "bpm", 0, "metronome tempo (overrides config)")
}

func runPerform(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	log := logger.GetProjectLogger()

	src := rhythm.NewSource(clock.RealClock{}, cfg.Audio.SampleRate)
	transport := rhythm.NewTransport(src)
	recorder := audio.NewMemoryRecorder(cfg.Audio.SampleRate)
	coord := looper.NewCoordinator(src, transport, recorder, cfg.Loop.CountdownBeats)
	session := looper.NewSession(src, transport, coord, layerSettings())

	transport.AddBeatListener(func(beat, bar int) {
		log.WithFields(logrus.Fields{"beat": beat, "bar": bar}).Debug("beat")
	})
	transport.AddBoundaryListener(func() {
		log.Debug("loop wrapped")
	})

	bpm := cfg.Loop.MetronomeBPM
	if performBPM > 0 {
		bpm = performBPM
	}
	if err := session.Begin(bpm, cfg.Loop.BeatsPerBar); err != nil {
		return err
	}
	defer session.Abandon()

	if cfg.MIDIPads != "" {
		in, err := pads.Open(cfg.MIDIPads, coord)
		if err != nil {
			log.WithError(err).Warn("MIDI pads unavailable, continuing without")
		} else {
			defer in.Close()
		}
	}

	next, err := session.ArmNext()
	if err != nil {
		return err
	}
	log.WithField("layer", next).Info("pass armed, count-in running")

	ticker := time.NewTicker(time.Second / GlobalFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := session.FinishPass(); err != nil {
				return err
			}
			return printSummary(session)
		case <-ticker.C:
			snap := transport.Poll()
			renderFlash(snap)
		}
	}
}

// renderFlash draws the metronome indicator for the current snapshot.
func renderFlash(snap rhythm.Snapshot) {
	if !snap.Playing {
		return
	}
	level := rhythm.Pulse(snap.BeatPhase(), snap.IsDownBeat())
	lit := int(level * flashBarWidth)
	bar := strings.Repeat(flashFullChar, lit) + strings.Repeat(flashDimChar, flashBarWidth-lit)
	os.Stdout.WriteString("\r" + snap.Marker() + " " + bar)
}

func printSummary(session *looper.Session) error {
	log := logger.GetProjectLogger()

	data, err := session.Complete()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"session_id":     data.ID,
		"bpm":            data.Tempo,
		"bars":           data.Bars,
		"loop_length_ms": data.LoopLengthMs,
	}).Info("session complete")
	for _, l := range data.Layers {
		log.WithFields(logrus.Fields{
			"layer":       l.Type,
			"kind":        l.Kind,
			"events":      len(l.DrumHits) + len(l.Notes),
			"duration_ms": l.Duration,
		}).Info("layer")
	}
	return nil
}

// layerSettings maps the config's per-instrument defaults onto coordinator
// settings.
func layerSettings() map[layer.Type]looper.Settings {
	out := make(map[layer.Type]looper.Settings, len(cfg.Layers))
	for key, lc := range cfg.Layers {
		out[layer.Type(key)] = looper.Settings{
			Name:   lc.Name,
			Volume: lc.Volume,
			Style:  lc.Style,
		}
	}
	return out
}
