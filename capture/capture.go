// Package capture supervises the ffmpeg subprocesses that record the
// microphone and, in screen mode, the display. It owns spawn, graceful
// finalize, force-kill, and the post-stop mux of the two streams.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ykdojo/osh/log"
)

// Mode selects what gets captured.
type Mode int

const (
	AudioOnly Mode = iota
	ScreenAndAudio
)

func (m Mode) String() string {
	if m == ScreenAndAudio {
		return "video"
	}
	return "audio"
}

// Config parameterizes the capture subprocesses.
type Config struct {
	FFmpegPath  string
	FFprobePath string

	// InputFormat is the ffmpeg device demuxer. Empty picks the OS default
	// (avfoundation on macOS, pulse on Linux).
	InputFormat string

	AudioDevice int
	ScreenIndex int // -1 selects the last enumerated screen
	SampleRate  int
	Framerate   int
	Resolution  string

	// StopGrace bounds how long Stop waits for ffmpeg to flush buffers and
	// close its container before the process is force-killed.
	StopGrace time.Duration

	OutputDir string
}

// muxTolerance is the maximum allowed drift between the independently
// recorded screen and audio tracks.
const muxTolerance = 1500 * time.Millisecond

// Supervisor launches and monitors capture subprocesses. The exec seams are
// fields so tests can run without ffmpeg installed.
type Supervisor struct {
	cfg Config

	spawn func(bin string, args []string) (proc, error)
	enum  func(cfg Config) (DeviceList, error)
	mux   func(ctx context.Context, cfg Config, videoPath, audioPath, outPath string) error
	probe func(cfg Config, path string) (time.Duration, error)
}

// NewSupervisor builds a supervisor around the configured ffmpeg binary.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = defaultInputFormat()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	return &Supervisor{
		cfg:   cfg,
		spawn: startProc,
		enum:  listDevices,
		mux:   runMux,
		probe: probeDuration,
	}
}

// ListDevices enumerates capture devices so configuration can map indexes
// to human-readable names.
func (s *Supervisor) ListDevices() (DeviceList, error) {
	return s.enum(s.cfg)
}

// Start verifies the needed devices exist and spawns the capture
// subprocess(es) for the session. Enumeration failures surface as a
// DeviceError before anything is spawned.
func (s *Supervisor) Start(sessionID string, mode Mode) (*Handle, error) {
	devices, err := s.enum(s.cfg)
	if err != nil {
		return nil, &DeviceError{Reason: fmt.Sprintf("device enumeration failed: %v", err)}
	}
	if _, ok := devices.Audio[s.cfg.AudioDevice]; !ok {
		return nil, &DeviceError{Reason: fmt.Sprintf("audio device %d not found", s.cfg.AudioDevice)}
	}

	screenIndex := s.cfg.ScreenIndex
	if mode == ScreenAndAudio {
		// Screen enumeration and grabbing are only wired for avfoundation;
		// other demuxers would need their own grab input (x11grab, gdigrab).
		if s.cfg.InputFormat != "avfoundation" {
			return nil, &DeviceError{Reason: fmt.Sprintf("screen capture is not supported with input format %q", s.cfg.InputFormat)}
		}
		if len(devices.Screens) == 0 {
			return nil, &DeviceError{Reason: "no capture screens found (missing screen permission?)"}
		}
		if screenIndex < 0 {
			screenIndex = devices.LastScreen()
		} else if _, ok := devices.Screens[screenIndex]; !ok {
			return nil, &DeviceError{Reason: fmt.Sprintf("screen %d not found", screenIndex)}
		}
	}

	stem := filepath.Join(s.cfg.OutputDir, "rec_"+uuid.NewString()[:8])
	h := &Handle{
		sup:       s,
		mode:      mode,
		sessionID: sessionID,
		startedAt: time.Now(),
	}

	switch mode {
	case AudioOnly:
		h.audioPath = stem + ".wav"
		h.outputPath = h.audioPath
	case ScreenAndAudio:
		// Two cooperating processes share the start timestamp so the
		// tracks can be muxed without drift.
		h.audioPath = stem + "_audio.wav"
		h.screenPath = stem + "_screen.mp4"
		h.outputPath = stem + ".mp4"
	}

	audio, err := s.spawn(s.cfg.FFmpegPath, audioArgs(s.cfg, h.audioPath))
	if err != nil {
		return nil, &DeviceError{Reason: fmt.Sprintf("audio capture spawn: %v", err)}
	}
	h.audio = audio

	if mode == ScreenAndAudio {
		screen, err := s.spawn(s.cfg.FFmpegPath, screenArgs(s.cfg, screenIndex, h.screenPath))
		if err != nil {
			audio.Kill()
			return nil, &DeviceError{Reason: fmt.Sprintf("screen capture spawn: %v", err)}
		}
		h.screen = screen
	}

	log.Capture(sessionID, "start", map[string]string{
		"mode": mode.String(),
		"out":  h.outputPath,
	})
	return h, nil
}

// audioArgs builds the ffmpeg invocation for microphone capture.
func audioArgs(cfg Config, outPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostats",
		"-f", cfg.InputFormat,
		"-i", audioInputSpec(cfg),
		"-ac", "1",
		"-ar", itoa(cfg.SampleRate),
	}
	return append(args, outPath)
}

// screenArgs builds the ffmpeg invocation for display capture.
func screenArgs(cfg Config, screenIndex int, outPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-nostats",
		"-f", cfg.InputFormat,
		"-framerate", itoa(cfg.Framerate),
		"-video_size", cfg.Resolution,
		"-capture_cursor", "1",
		"-pix_fmt", "uyvy422",
		"-i", itoa(screenIndex),
		"-vcodec", "h264",
		"-preset", "ultrafast",
		"-crf", "22",
	}
	return append(args, outPath)
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }
