package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ykdojo/osh/log"
)

// Handle tracks one in-flight recording. Stop and ForceKill are the only
// ways out; both are safe to call after the subprocesses already exited.
type Handle struct {
	sup       *Supervisor
	mode      Mode
	sessionID string
	startedAt time.Time

	audio  proc
	screen proc // nil in audio-only mode

	audioPath  string
	screenPath string
	outputPath string
}

// OutputPath is where the finished media lands once Stop succeeds.
func (h *Handle) OutputPath() string { return h.outputPath }

// StartedAt is when the subprocesses were spawned.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Stop asks the subprocess(es) to finalize, waits out the grace period, and
// in screen mode muxes the parts. It returns the path of the finished media.
// If ffmpeg does not exit within the grace period it is force-killed and a
// *StopTimeoutError is returned. A subprocess that already died is treated
// as a device failure and reported as a *DeviceError.
func (h *Handle) Stop(ctx context.Context) (string, error) {
	grace := h.sup.cfg.StopGrace

	died, err := h.drain(grace)
	if err != nil {
		return "", err
	}
	if died {
		h.ForceKill()
		return "", &DeviceError{Reason: h.deathReport()}
	}

	if fi, statErr := os.Stat(h.audioPath); statErr != nil || fi.Size() == 0 {
		return "", &DeviceError{Reason: "capture produced no audio data"}
	}

	if h.mode == AudioOnly {
		log.Capture(h.sessionID, "stop", map[string]string{"out": h.outputPath})
		return h.outputPath, nil
	}

	if err := h.muxParts(ctx); err != nil {
		return "", err
	}
	log.Capture(h.sessionID, "stop", map[string]string{"out": h.outputPath})
	return h.outputPath, nil
}

// drain interrupts every live subprocess and waits for all of them, bounded
// by the grace period. It reports whether any process had already exited on
// its own before the interrupt, which means capture failed mid-session.
func (h *Handle) drain(grace time.Duration) (died bool, err error) {
	procs := []proc{h.audio}
	if h.screen != nil {
		procs = append(procs, h.screen)
	}

	for _, p := range procs {
		select {
		case <-p.Done():
			died = true
		default:
			p.Interrupt()
		}
	}
	if died {
		return true, nil
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	for _, p := range procs {
		select {
		case <-p.Done():
			// ffmpeg exits non-zero on interrupt; the caller's file check
			// is what decides success.
		case <-deadline.C:
			h.ForceKill()
			return false, &StopTimeoutError{Grace: grace.String()}
		}
	}
	return false, nil
}

// ForceKill tears the subprocesses down without waiting for a clean
// container. Used on process shutdown and as the grace-period fallback
// when an interrupted recorder does not exit on its own.
func (h *Handle) ForceKill() {
	h.audio.Kill()
	if h.screen != nil {
		h.screen.Kill()
	}
	log.Capture(h.sessionID, "force_kill", nil)
}

// Discard removes every file the session produced, parts included.
func (h *Handle) Discard() {
	for _, p := range []string{h.audioPath, h.screenPath, h.outputPath} {
		if p != "" {
			os.Remove(p)
		}
	}
}

func (h *Handle) deathReport() string {
	report := func(p proc) string {
		if p == nil {
			return ""
		}
		select {
		case <-p.Done():
			return strings.TrimSpace(p.Stderr())
		default:
			return ""
		}
	}
	if msg := report(h.audio); msg != "" {
		return "capture exited early: " + msg
	}
	if msg := report(h.screen); msg != "" {
		return "screen capture exited early: " + msg
	}
	return "capture exited early"
}

// muxParts combines the screen and audio tracks into the deliverable. The
// tracks were recorded by independent processes, so their durations are
// compared first; drift beyond the tolerance means one of them stalled and
// the result would be out of sync.
func (h *Handle) muxParts(ctx context.Context) error {
	videoDur, err := h.sup.probe(h.sup.cfg, h.screenPath)
	if err != nil {
		return &MuxError{Reason: fmt.Sprintf("probe screen track: %v", err)}
	}
	audioDur, err := h.sup.probe(h.sup.cfg, h.audioPath)
	if err != nil {
		return &MuxError{Reason: fmt.Sprintf("probe audio track: %v", err)}
	}
	drift := videoDur - audioDur
	if drift < 0 {
		drift = -drift
	}
	if drift > muxTolerance {
		return &MuxError{Reason: fmt.Sprintf("track durations differ by %s (video %s, audio %s)",
			drift.Round(time.Millisecond), videoDur.Round(time.Millisecond), audioDur.Round(time.Millisecond))}
	}

	if err := h.sup.mux(ctx, h.sup.cfg, h.screenPath, h.audioPath, h.outputPath); err != nil {
		return &MuxError{Reason: err.Error()}
	}

	// Parts are only cleaned up once the combined file is in place.
	os.Remove(h.screenPath)
	os.Remove(h.audioPath)
	return nil
}

// runMux remuxes the video track and transcodes the audio to AAC so the
// result plays everywhere mp4 does.
func runMux(ctx context.Context, cfg Config, videoPath, audioPath, outPath string) error {
	cmd := exec.CommandContext(ctx, cfg.FFmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func probeDuration(cfg Config, path string) (time.Duration, error) {
	cmd := exec.Command(cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q", strings.TrimSpace(string(out)))
	}
	return time.Duration(secs * float64(time.Second)), nil
}
