package session

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ykdojo/osh/capture"
	"github.com/ykdojo/osh/transcriber"
)

type fixture struct {
	machine *Machine
	sup     *FakeSupervisor
	pipe    *FakePipeline
	metrics *FakeMetrics
	sink    *FakeSink

	mu      sync.Mutex
	notices []string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		sup:     &FakeSupervisor{},
		pipe:    &FakePipeline{Result: transcriber.Result{Text: "hello world", Kind: transcriber.KindText, Attempts: 1}},
		metrics: &FakeMetrics{},
		sink:    &FakeSink{},
	}
	notify := opts.Notify
	opts.Notify = func(msg string) {
		f.mu.Lock()
		f.notices = append(f.notices, msg)
		f.mu.Unlock()
		if notify != nil {
			notify(msg)
		}
	}
	f.machine = NewMachine(Deps{
		Supervisor: f.sup,
		Pipeline:   f.pipe,
		Metrics:    f.metrics,
		Sink:       f.sink,
		Glossary:   &FakeGlossary{List: []string{"ffmpeg"}},
	}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.machine.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func (f *fixture) noticeContaining(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notices {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (f *fixture) waitState(t *testing.T, want State) {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return f.machine.State() == want })
}

func (f *fixture) waitRetired(t *testing.T, want State) Snapshot {
	t.Helper()
	waitFor(t, "retired "+want.String(), func() bool {
		return f.machine.State() == Idle && f.machine.Last().State == want
	})
	return f.machine.Last()
}

func TestAudioSessionCompletes(t *testing.T) {
	f := newFixture(t, Options{})

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Completed)
	if snap.StopReason != StopManualHotkey {
		t.Errorf("stop reason = %v", snap.StopReason)
	}
	if snap.Transcript != "hello world" {
		t.Errorf("transcript = %q", snap.Transcript)
	}
	if got := f.sink.Texts(); len(got) != 1 || got[0] != "hello world" {
		t.Errorf("inserted = %v", got)
	}
	records := f.metrics.Records()
	if len(records) != 1 || records[0].Chars != 11 || records[0].Words != 2 {
		t.Errorf("metrics = %+v", records)
	}
	recs := f.sup.Starts()
	if len(recs) != 1 || !recs[0].Stopped() {
		t.Fatal("supervisor stop was never invoked")
	}
	if !recs[0].Discarded() {
		t.Error("media not deleted after full completion")
	}
	if snap.MediaKept {
		t.Error("snapshot claims media kept")
	}
}

func TestToggleNeverSkipsSupervisorStop(t *testing.T) {
	f := newFixture(t, Options{})

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)
	f.waitRetired(t, Completed)

	if !f.sup.Starts()[0].Stopped() {
		t.Error("toggle-off reached Idle without Supervisor.Stop")
	}
}

func TestSecondTriggerRejectedWhileBusy(t *testing.T) {
	f := newFixture(t, Options{})

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleScreen)

	waitFor(t, "busy notice", func() bool { return f.noticeContaining("session busy") })
	if len(f.sup.Starts()) != 1 {
		t.Fatalf("second capture started: %d recordings", len(f.sup.Starts()))
	}
	if f.machine.State() != Recording {
		t.Errorf("state = %v, busy trigger must not disturb the session", f.machine.State())
	}
}

func TestScreenModeRequestsVideoTranscription(t *testing.T) {
	f := newFixture(t, Options{})

	f.machine.Command(CmdToggleScreen)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleScreen)
	f.waitRetired(t, Completed)

	reqs := f.pipe.Requests()
	if len(reqs) != 1 || !reqs[0].Video {
		t.Fatalf("requests = %+v, want one video request", reqs)
	}
	if len(reqs[0].Terms) != 1 || reqs[0].Terms[0] != "ffmpeg" {
		t.Errorf("glossary terms not forwarded: %v", reqs[0].Terms)
	}
}

func TestSentinelCompletesWithoutMetrics(t *testing.T) {
	f := newFixture(t, Options{})
	f.pipe.Result = transcriber.Result{Kind: transcriber.KindNoAudio, Attempts: 1}

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Completed)
	if f.metrics.Count() != 0 {
		t.Error("sentinel outcome recorded metrics")
	}
	if len(f.sink.Texts()) != 0 {
		t.Error("sentinel outcome inserted text")
	}
	if !f.noticeContaining("no audio") {
		t.Error("sentinel not reported to user")
	}
	if !f.sup.Starts()[0].Discarded() {
		t.Error("silent recording not deleted")
	}
	if snap.Transcript != "" {
		t.Errorf("transcript = %q", snap.Transcript)
	}
}

func TestTranscriptionFailurePreservesMedia(t *testing.T) {
	f := newFixture(t, Options{})
	f.pipe.Result = transcriber.Result{}
	f.pipe.Err = errors.New("transcription failed after 3 attempts")

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Failed)
	if f.sup.Starts()[0].Discarded() {
		t.Error("failed session's media was deleted")
	}
	if !snap.MediaKept || snap.Err == nil {
		t.Errorf("snapshot = %+v", snap)
	}
	if !f.noticeContaining("transcription failed") {
		t.Error("failure not surfaced")
	}
}

func TestMetricsHandoffFailureKeepsFile(t *testing.T) {
	f := newFixture(t, Options{})
	f.metrics.Err = errors.New("csv: disk full")

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Completed)
	if f.sup.Starts()[0].Discarded() {
		t.Error("media deleted despite failed metrics hand-off")
	}
	if !snap.MediaKept {
		t.Error("snapshot does not report media kept")
	}
	if !f.noticeContaining("metrics") {
		t.Error("hand-off failure not surfaced")
	}
	// Insertion still happened; the text is not lost.
	if len(f.sink.Texts()) != 1 {
		t.Error("insertion skipped")
	}
}

func TestInsertionFailureKeepsFile(t *testing.T) {
	f := newFixture(t, Options{})
	f.sink.Err = errors.New("clipboard unavailable")

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Completed)
	if f.sup.Starts()[0].Discarded() || !snap.MediaKept {
		t.Error("media must survive a failed insertion hand-off")
	}
}

func TestStartDeviceErrorFailsSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.sup.StartErr = &capture.DeviceError{Reason: "audio device 0 not found"}

	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Failed)
	if snap.StopReason != StopDeviceError {
		t.Errorf("stop reason = %v", snap.StopReason)
	}
	if !f.noticeContaining("failed to start") {
		t.Error("start failure not surfaced")
	}
}

func TestStopTimeoutDiscardsAndFails(t *testing.T) {
	f := newFixture(t, Options{})
	f.sup.StopErr = &capture.StopTimeoutError{Grace: "5s"}

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Failed)
	if !f.sup.Starts()[0].Discarded() {
		t.Error("truncated media not discarded after stop timeout")
	}
	if snap.MediaKept {
		t.Error("snapshot claims media kept")
	}
}

func TestStopDeviceErrorDiscards(t *testing.T) {
	f := newFixture(t, Options{})
	f.sup.StopErr = &capture.DeviceError{Reason: "capture produced no audio data"}

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Failed)
	if snap.StopReason != StopDeviceError {
		t.Errorf("stop reason = %v", snap.StopReason)
	}
	if !f.sup.Starts()[0].Discarded() {
		t.Error("partial file not discarded")
	}
}

func TestMuxErrorRetainsParts(t *testing.T) {
	f := newFixture(t, Options{})
	f.sup.StopErr = &capture.MuxError{Reason: "track durations differ by 2s"}

	f.machine.Command(CmdToggleScreen)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleScreen)

	snap := f.waitRetired(t, Failed)
	if f.sup.Starts()[0].Discarded() {
		t.Error("mux failure must retain parts for diagnosis")
	}
	if !snap.MediaKept {
		t.Error("snapshot does not report media kept")
	}
}

func TestInterruptDuringRecording(t *testing.T) {
	f := newFixture(t, Options{})

	f.machine.Command(CmdToggleScreen)
	f.waitState(t, Recording)
	f.machine.Command(CmdInterrupt)

	snap := f.waitRetired(t, Completed)
	if snap.StopReason != StopManualInterrupt {
		t.Errorf("stop reason = %v, want manual_interrupt", snap.StopReason)
	}
	if !f.sup.Starts()[0].Stopped() {
		t.Error("interrupt must finalize through Supervisor.Stop")
	}
}

func TestInterruptRejectedOutsideRecording(t *testing.T) {
	f := newFixture(t, Options{})
	f.pipe.Gate = make(chan struct{})

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Transcribing)

	f.machine.Command(CmdInterrupt)
	waitFor(t, "busy notice", func() bool { return f.noticeContaining("session busy") })
	if f.machine.State() != Transcribing {
		t.Errorf("state = %v, interrupt must not cancel transcription", f.machine.State())
	}

	close(f.pipe.Gate)
	f.waitRetired(t, Completed)
}

func TestDurationLimitStopsRecording(t *testing.T) {
	f := newFixture(t, Options{MaxDuration: 20 * time.Millisecond})

	f.machine.Command(CmdToggleAudio)

	snap := f.waitRetired(t, Completed)
	if snap.StopReason != StopDurationLimit {
		t.Errorf("stop reason = %v, want duration_limit", snap.StopReason)
	}
}

func TestManualStopInIdleIsIgnored(t *testing.T) {
	f := newFixture(t, Options{})

	f.machine.Command(CmdManualStop)
	f.machine.Command(CmdInterrupt)

	f.machine.Command(CmdToggleAudio)
	f.waitState(t, Recording)
	if len(f.sup.Starts()) != 1 {
		t.Fatalf("starts = %d", len(f.sup.Starts()))
	}
}

// TestSingleActiveSessionInvariant hammers the machine with randomized
// command interleavings and checks that no two captures were ever live at
// the same time.
func TestSingleActiveSessionInvariant(t *testing.T) {
	f := newFixture(t, Options{MaxDuration: 5 * time.Millisecond})
	rng := rand.New(rand.NewSource(1))

	commands := []Command{CmdToggleAudio, CmdToggleScreen, CmdManualStop, CmdInterrupt}
	for i := 0; i < 300; i++ {
		f.machine.Command(commands[rng.Intn(len(commands))])
		if rng.Intn(3) == 0 {
			time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
		}
	}

	waitFor(t, "machine to drain", func() bool { return f.machine.State() == Idle })
	if max := f.sup.MaxLive(); max > 1 {
		t.Fatalf("%d captures were live concurrently", max)
	}
}
