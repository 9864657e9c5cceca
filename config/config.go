// Package config holds the YAML configuration schema and loader for osh.
// Bindings and capture settings are loaded once at process start and are
// immutable afterwards.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" or "2m" decode.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure, typically loaded from a YAML
// file with Load.
type Config struct {
	Hotkeys       HotkeysConfig       `yaml:"hotkeys"`
	Capture       CaptureConfig       `yaml:"capture"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Metrics       MetricsConfig       `yaml:"metrics"`

	// AutoPaste inserts the transcript at the cursor after copying it to
	// the clipboard.
	AutoPaste bool `yaml:"autopaste"`
}

// HotkeysConfig maps key chords to recording actions. Chord syntax is
// modifier names joined with '+' and a final letter key, e.g. "ctrl+shift+a".
type HotkeysConfig struct {
	ToggleAudio  string `yaml:"toggle_audio"`
	ToggleScreen string `yaml:"toggle_screen"`
	ManualStop   string `yaml:"manual_stop"`

	// Debounce collapses key-repeat events for a held chord into one action.
	Debounce Duration `yaml:"debounce"`

	// WatchdogInterval is how long the listener may go without any OS key
	// event before it re-registers its chords.
	WatchdogInterval Duration `yaml:"watchdog_interval"`
}

// CaptureConfig parameterizes the ffmpeg capture subprocesses.
type CaptureConfig struct {
	// FFmpegPath is the capture binary. Defaults to "ffmpeg" on PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// InputFormat is the ffmpeg input device format (avfoundation on
	// macOS). Empty selects a per-OS default.
	InputFormat string `yaml:"input_format"`

	// AudioDevice is the capture device index from ListDevices.
	AudioDevice int `yaml:"audio_device"`

	// ScreenIndex selects the screen to capture; -1 picks the last
	// enumerated screen.
	ScreenIndex int `yaml:"screen_index"`

	SampleRate int    `yaml:"sample_rate"`
	Framerate  int    `yaml:"framerate"`
	Resolution string `yaml:"resolution"`

	// MaxDuration stops a recording that was never toggled off.
	MaxDuration Duration `yaml:"max_duration"`

	// StopGrace bounds how long Stop waits for ffmpeg to finalize its
	// container before force-killing.
	StopGrace Duration `yaml:"stop_grace"`

	// OutputDir holds finished recordings. Empty uses the OS temp dir.
	OutputDir string `yaml:"output_dir"`
}

// TranscriptionConfig parameterizes the Gemini pipeline.
type TranscriptionConfig struct {
	Model        string   `yaml:"model"`
	MaxAttempts  int      `yaml:"max_attempts"`
	BackoffBase  Duration `yaml:"backoff_base"`
	BackoffCap   Duration `yaml:"backoff_cap"`
	Timeout      Duration `yaml:"timeout"`
	GlossaryPath string   `yaml:"glossary_path"`
}

// MetricsConfig locates the typing-metrics CSV.
type MetricsConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// Default returns the built-in configuration. A config file overrides
// individual fields.
func Default() *Config {
	return &Config{
		Hotkeys: HotkeysConfig{
			ToggleAudio:      "shift+alt+x",
			ToggleScreen:     "shift+alt+z",
			ManualStop:       "shift+alt+s",
			Debounce:         Duration(300 * time.Millisecond),
			WatchdogInterval: Duration(2 * time.Minute),
		},
		Capture: CaptureConfig{
			FFmpegPath:  "ffmpeg",
			AudioDevice: 0,
			ScreenIndex: -1,
			SampleRate:  44100,
			Framerate:   30,
			Resolution:  "1280x720",
			MaxDuration: Duration(60 * time.Second),
			StopGrace:   Duration(5 * time.Second),
		},
		Transcription: TranscriptionConfig{
			Model:       "gemini-2.0-flash",
			MaxAttempts: 3,
			BackoffBase: Duration(time.Second),
			BackoffCap:  Duration(8 * time.Second),
			Timeout:     Duration(60 * time.Second),
		},
		AutoPaste: true,
	}
}
