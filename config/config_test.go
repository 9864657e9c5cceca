package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	t.Parallel()

	yml := `
hotkeys:
  toggle_audio: "ctrl+shift+a"
  watchdog_interval: "30s"
capture:
  max_duration: "2m"
  audio_device: 3
transcription:
  max_attempts: 5
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Hotkeys.ToggleAudio != "ctrl+shift+a" {
		t.Errorf("ToggleAudio = %q", cfg.Hotkeys.ToggleAudio)
	}
	if cfg.Hotkeys.WatchdogInterval.Std() != 30*time.Second {
		t.Errorf("WatchdogInterval = %v", cfg.Hotkeys.WatchdogInterval.Std())
	}
	if cfg.Capture.MaxDuration.Std() != 2*time.Minute {
		t.Errorf("MaxDuration = %v", cfg.Capture.MaxDuration.Std())
	}
	if cfg.Capture.AudioDevice != 3 {
		t.Errorf("AudioDevice = %d", cfg.Capture.AudioDevice)
	}
	if cfg.Transcription.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.Transcription.MaxAttempts)
	}
	// Untouched fields keep defaults.
	if cfg.Hotkeys.ToggleScreen != "shift+alt+z" {
		t.Errorf("ToggleScreen = %q, want default", cfg.Hotkeys.ToggleScreen)
	}
	if cfg.Transcription.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want default", cfg.Transcription.Model)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("frobnicate: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateDuplicateChords(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Hotkeys.ManualStop = cfg.Hotkeys.ToggleAudio
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected duplicate chord error")
	}
	if !strings.Contains(err.Error(), "share chord") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Hotkeys.ToggleAudio = ""
	cfg.Capture.SampleRate = 0
	cfg.Transcription.MaxAttempts = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"toggle_audio", "sample_rate", "max_attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir() + "/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want default 3", cfg.Transcription.MaxAttempts)
	}
}

func TestInvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("capture:\n  stop_grace: \"banana\"\n"))
	if err == nil {
		t.Fatal("expected duration parse error")
	}
}
