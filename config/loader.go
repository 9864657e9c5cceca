package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, overlays it on Default,
// and returns a validated Config. A missing file is not an error: the
// defaults are returned as-is.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Hotkeys.ToggleAudio == "" {
		errs = append(errs, errors.New("hotkeys.toggle_audio must be set"))
	}
	if cfg.Hotkeys.ToggleScreen == "" {
		errs = append(errs, errors.New("hotkeys.toggle_screen must be set"))
	}
	if cfg.Hotkeys.ManualStop == "" {
		errs = append(errs, errors.New("hotkeys.manual_stop must be set"))
	}
	seen := map[string]string{}
	for _, b := range []struct{ name, chord string }{
		{"toggle_audio", cfg.Hotkeys.ToggleAudio},
		{"toggle_screen", cfg.Hotkeys.ToggleScreen},
		{"manual_stop", cfg.Hotkeys.ManualStop},
	} {
		name, chord := b.name, b.chord
		if chord == "" {
			continue
		}
		if prev, ok := seen[chord]; ok {
			errs = append(errs, fmt.Errorf("hotkeys.%s and hotkeys.%s share chord %q", prev, name, chord))
		}
		seen[chord] = name
	}

	if cfg.Capture.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must be positive", cfg.Capture.SampleRate))
	}
	if cfg.Capture.Framerate <= 0 {
		errs = append(errs, fmt.Errorf("capture.framerate %d must be positive", cfg.Capture.Framerate))
	}
	if cfg.Capture.MaxDuration.Std() <= 0 {
		errs = append(errs, errors.New("capture.max_duration must be positive"))
	}
	if cfg.Capture.StopGrace.Std() <= 0 {
		errs = append(errs, errors.New("capture.stop_grace must be positive"))
	}

	if cfg.Transcription.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("transcription.max_attempts %d must be at least 1", cfg.Transcription.MaxAttempts))
	}
	if cfg.Transcription.Model == "" {
		errs = append(errs, errors.New("transcription.model must be set"))
	}

	return errors.Join(errs...)
}
