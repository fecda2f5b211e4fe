package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds the engine's host-tunable settings. Everything has a sensible
// default; a config file only needs to name what it overrides.
type Config struct {
	Audio    AudioConfig            `mapstructure:"audio" yaml:"audio"`
	Loop     LoopConfig             `mapstructure:"loop" yaml:"loop"`
	Layers   map[string]LayerConfig `mapstructure:"layers" yaml:"layers"`
	MIDIPads string                 `mapstructure:"midi_pads" yaml:"midi_pads"`
}

// AudioConfig describes the hardware clock the engine reads.
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// LoopConfig holds the loop defaults used before a reference recording
// resolves the real tempo.
type LoopConfig struct {
	BeatsPerBar    int     `mapstructure:"beats_per_bar" yaml:"beats_per_bar"`
	CountdownBeats int     `mapstructure:"countdown_beats" yaml:"countdown_beats"`
	MetronomeBPM   float64 `mapstructure:"metronome_bpm" yaml:"metronome_bpm"`

	// Subdivision is the default quantization grid: 1, 4, 8 or 16.
	Subdivision int `mapstructure:"subdivision" yaml:"subdivision"`
}

// LayerConfig carries per-instrument presentation defaults.
type LayerConfig struct {
	Name   string  `mapstructure:"name" yaml:"name"`
	Volume float64 `mapstructure:"volume" yaml:"volume"`
	Style  string  `mapstructure:"style" yaml:"style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 48000,
		},
		Loop: LoopConfig{
			BeatsPerBar:    4,
			CountdownBeats: 4,
			MetronomeBPM:   120,
			Subdivision:    16,
		},
		Layers: map[string]LayerConfig{
			"drums":  {Name: "Drums", Volume: 0.8},
			"bass":   {Name: "Bass", Volume: 0.8, Style: "fingered"},
			"guitar": {Name: "Guitar", Volume: 0.8, Style: "clean"},
			"piano":  {Name: "Piano", Volume: 0.8, Style: "grand"},
			"voice":  {Name: "Voice", Volume: 0.8},
		},
	}
}

// Load reads a YAML config file and merges it over the defaults. An empty
// path returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Loop.BeatsPerBar < 2 || c.Loop.BeatsPerBar > 8 {
		return fmt.Errorf("loop.beats_per_bar must be between 2 and 8, got %d", c.Loop.BeatsPerBar)
	}
	if c.Loop.CountdownBeats <= 0 {
		return fmt.Errorf("loop.countdown_beats must be positive, got %d", c.Loop.CountdownBeats)
	}
	if c.Loop.MetronomeBPM < 40 || c.Loop.MetronomeBPM > 240 {
		return fmt.Errorf("loop.metronome_bpm must be between 40 and 240, got %g", c.Loop.MetronomeBPM)
	}
	switch c.Loop.Subdivision {
	case 1, 4, 8, 16:
	default:
		return fmt.Errorf("loop.subdivision must be 1, 4, 8 or 16, got %d", c.Loop.Subdivision)
	}
	for key, l := range c.Layers {
		if l.Volume < 0 || l.Volume > 1 {
			return fmt.Errorf("layers.%s.volume must be between 0 and 1, got %g", key, l.Volume)
		}
	}
	return nil
}
