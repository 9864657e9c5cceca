package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ykdojo/osh/capture"
	"github.com/ykdojo/osh/log"
	"github.com/ykdojo/osh/metrics"
	"github.com/ykdojo/osh/transcriber"
)

// Handle is the machine's view of an in-flight capture.
// *capture.Handle satisfies it through the supervisor adapter below.
type Handle interface {
	Stop(ctx context.Context) (string, error)
	ForceKill()
	Discard()
}

// Supervisor starts captures.
type Supervisor interface {
	Start(sessionID string, mode capture.Mode) (Handle, error)
}

// Pipeline turns finished media into text.
type Pipeline interface {
	Run(ctx context.Context, sessionID string, req transcriber.Request) (transcriber.Result, error)
}

// MetricsRecorder receives the per-session typing counts.
type MetricsRecorder interface {
	Record(ts time.Time, characters, words int) error
}

// InsertionSink places the transcript at the user's cursor.
type InsertionSink interface {
	Insert(text string) error
}

// TermSource supplies the glossary vocabulary for transcription prompts.
type TermSource interface {
	Terms() []string
}

// Deps are the machine's collaborators.
type Deps struct {
	Supervisor Supervisor
	Pipeline   Pipeline
	Metrics    MetricsRecorder
	Sink       InsertionSink
	Glossary   TermSource
}

// Options tune the machine.
type Options struct {
	// MaxDuration caps the recording phase; 0 disables the ceiling.
	MaxDuration time.Duration
	// Notify surfaces user-facing status lines (busy rejections, sentinel
	// outcomes, failures). Nil discards them.
	Notify func(msg string)
	// OnState observes entered states, for audible cues. Nil discards.
	OnState func(s State)
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

type eventKind int

const (
	evCommand eventKind = iota
	evDurationLimit
	evStopDone
	evTranscribeDone
)

// event is one item on the ordered inbound queue. Completion events carry
// the session ID they belong to so stale events from a retired session are
// dropped instead of corrupting the next one.
type event struct {
	kind      eventKind
	cmd       Command
	sessionID string
	path      string
	result    transcriber.Result
	err       error
}

type active struct {
	snap  Snapshot
	rec   Handle
	timer *time.Timer
}

// Machine applies session transitions one event at a time. Listener
// commands, the duration-limit timer, and supervisor/pipeline completions
// all funnel into a single channel consumed by Run.
type Machine struct {
	deps Deps
	opts Options

	events chan event

	mu        sync.Mutex
	cur       *active
	last      Snapshot
	completed int
}

func NewMachine(deps Deps, opts Options) *Machine {
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	if opts.OnState == nil {
		opts.OnState = func(State) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		deps:   deps,
		opts:   opts,
		events: make(chan event, 16),
	}
}

// Command enqueues a listener action. It never blocks the caller for long:
// the queue is buffered and drained by a dedicated goroutine.
func (m *Machine) Command(cmd Command) {
	m.events <- event{kind: evCommand, cmd: cmd}
}

func (m *Machine) post(ev event) {
	m.events <- ev
}

// State returns the current session's state, or Idle when none is active.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return Idle
	}
	return m.cur.snap.State
}

// Last returns the most recently retired session.
func (m *Machine) Last() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// CompletedCount is how many sessions reached Completed this run.
func (m *Machine) CompletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

// Run drains the event queue until the context is canceled. An active
// capture at shutdown is force-killed with its media retained.
func (m *Machine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			cur := m.cur
			m.mu.Unlock()
			if cur != nil && cur.rec != nil {
				cur.rec.ForceKill()
				log.Transition(cur.snap.ID, cur.snap.State.String(), "failed", "shutdown")
			}
			return
		case ev := <-m.events:
			m.handle(ctx, ev)
		}
	}
}

func (m *Machine) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evCommand:
		m.handleCommand(ctx, ev.cmd)
	case evDurationLimit:
		if m.owns(ev.sessionID) && m.State() == Recording {
			m.stopCurrent(ctx, StopDurationLimit)
		}
	case evStopDone:
		if m.owns(ev.sessionID) && m.State() == Stopping {
			m.handleStopDone(ctx, ev)
		}
	case evTranscribeDone:
		if m.owns(ev.sessionID) && m.State() == Transcribing {
			m.handleTranscribeDone(ev)
		}
	}
}

func (m *Machine) owns(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur != nil && m.cur.snap.ID == sessionID
}

func (m *Machine) handleCommand(ctx context.Context, cmd Command) {
	state := m.State()

	if state == Idle {
		switch cmd {
		case CmdToggleAudio:
			m.startSession(ctx, capture.AudioOnly)
		case CmdToggleScreen:
			m.startSession(ctx, capture.ScreenAndAudio)
		default:
			log.Infof("session: %s ignored, nothing recording", cmd)
		}
		return
	}

	if state == Recording {
		m.mu.Lock()
		mode := m.cur.snap.Mode
		m.mu.Unlock()
		switch {
		case cmd == CmdManualStop,
			cmd == CmdToggleAudio && mode == capture.AudioOnly,
			cmd == CmdToggleScreen && mode == capture.ScreenAndAudio:
			m.stopCurrent(ctx, StopManualHotkey)
		case cmd == CmdInterrupt:
			m.stopCurrent(ctx, StopManualInterrupt)
		default:
			m.reject(cmd, state)
		}
		return
	}

	// Stopping / AwaitingTranscription / Transcribing: nothing is
	// cancellable, including the interrupt key.
	m.reject(cmd, state)
}

// reject surfaces a busy signal instead of queueing the command. Queueing
// would let two captures race for one output file.
func (m *Machine) reject(cmd Command, state State) {
	log.Warnf("session: %s rejected, session busy (%s)", cmd, state)
	m.opts.Notify("session busy: still " + state.String())
}

func (m *Machine) startSession(ctx context.Context, mode capture.Mode) {
	id := uuid.NewString()[:8]

	rec, err := m.deps.Supervisor.Start(id, mode)
	if err != nil {
		log.Transition(id, Idle.String(), Failed.String(), "start: "+err.Error())
		m.opts.Notify("recording failed to start: " + err.Error())
		m.opts.OnState(Failed)
		m.retire(Snapshot{
			ID:         id,
			Mode:       mode,
			State:      Failed,
			StartedAt:  m.opts.Now(),
			StopReason: StopDeviceError,
			Err:        err,
		})
		return
	}

	a := &active{
		snap: Snapshot{
			ID:        id,
			Mode:      mode,
			State:     Recording,
			StartedAt: m.opts.Now(),
		},
		rec: rec,
	}
	if m.opts.MaxDuration > 0 {
		a.timer = time.AfterFunc(m.opts.MaxDuration, func() {
			m.post(event{kind: evDurationLimit, sessionID: id})
		})
	}

	m.mu.Lock()
	m.cur = a
	m.mu.Unlock()
	log.Transition(id, Idle.String(), Recording.String(), mode.String())
	m.opts.OnState(Recording)
}

func (m *Machine) stopCurrent(ctx context.Context, reason StopReason) {
	m.mu.Lock()
	a := m.cur
	a.snap.State = Stopping
	a.snap.StopReason = reason
	a.snap.StoppedAt = m.opts.Now()
	if a.timer != nil {
		a.timer.Stop()
	}
	m.mu.Unlock()
	log.Transition(a.snap.ID, Recording.String(), Stopping.String(), reason.String())
	m.opts.OnState(Stopping)

	// Finalize off the machine goroutine so the queue keeps draining while
	// ffmpeg flushes; the outcome comes back as an ordered event.
	go func() {
		path, err := a.rec.Stop(ctx)
		m.post(event{kind: evStopDone, sessionID: a.snap.ID, path: path, err: err})
	}()
}

func (m *Machine) handleStopDone(ctx context.Context, ev event) {
	m.mu.Lock()
	a := m.cur
	m.mu.Unlock()

	if ev.err != nil {
		var (
			timeoutErr *capture.StopTimeoutError
			devErr     *capture.DeviceError
			muxErr     *capture.MuxError
		)
		kept := false
		reason := ev.err.Error()
		switch {
		case errors.As(ev.err, &timeoutErr):
			a.rec.Discard()
		case errors.As(ev.err, &devErr):
			m.mu.Lock()
			a.snap.StopReason = StopDeviceError
			m.mu.Unlock()
			a.rec.Discard()
		case errors.As(ev.err, &muxErr):
			// Parts stay on disk for diagnosis.
			kept = true
		default:
			kept = true
		}
		m.fail(a, Stopping, reason, ev.err, kept)
		return
	}

	m.mu.Lock()
	a.snap.OutputPath = ev.path
	a.snap.State = AwaitingTranscription
	m.mu.Unlock()
	log.Transition(a.snap.ID, Stopping.String(), AwaitingTranscription.String(), "finalized")

	m.submit(ctx, a)
}

func (m *Machine) submit(ctx context.Context, a *active) {
	m.mu.Lock()
	a.snap.State = Transcribing
	id, path, mode := a.snap.ID, a.snap.OutputPath, a.snap.Mode
	m.mu.Unlock()
	log.Transition(id, AwaitingTranscription.String(), Transcribing.String(), "submit")

	var terms []string
	if m.deps.Glossary != nil {
		terms = m.deps.Glossary.Terms()
	}
	req := transcriber.Request{
		MediaPath: path,
		Video:     mode == capture.ScreenAndAudio,
		Terms:     terms,
	}

	// One upload at a time per session; the machine stays free to reject
	// new triggers while this is in flight.
	go func() {
		res, err := m.deps.Pipeline.Run(ctx, id, req)
		m.post(event{kind: evTranscribeDone, sessionID: id, result: res, err: err})
	}()
}

func (m *Machine) handleTranscribeDone(ev event) {
	m.mu.Lock()
	a := m.cur
	m.mu.Unlock()

	if ev.err != nil {
		// The media survives so the user can retry transcription manually.
		m.opts.Notify("transcription failed: " + ev.err.Error())
		m.fail(a, Transcribing, ev.err.Error(), ev.err, true)
		return
	}

	res := ev.result
	if res.Sentinel() {
		// A sentinel is a successful completion: the backend looked and
		// found nothing worth keeping. No metrics, no insertion.
		switch res.Kind {
		case transcriber.KindNoAudio:
			m.opts.Notify("no audio detected in recording")
		case transcriber.KindNoSpeech:
			m.opts.Notify("no audible speech in recording")
		}
		m.complete(a, res, false)
		return
	}

	m.mu.Lock()
	a.snap.Transcript = res.Text
	m.mu.Unlock()
	log.TranscriptionText(res.Text)

	handoffFailed := false
	if err := m.deps.Sink.Insert(res.Text); err != nil {
		handoffFailed = true
		log.Errorf("session: text insertion failed: %v", err)
		m.opts.Notify("text insertion failed: " + err.Error())
	}
	chars, words := metrics.Count(res.Text)
	if err := m.deps.Metrics.Record(m.opts.Now(), chars, words); err != nil {
		handoffFailed = true
		log.Errorf("session: metrics hand-off failed: %v", err)
		m.opts.Notify("metrics recording failed: " + err.Error())
	}

	m.complete(a, res, handoffFailed)
}

// complete retires the session as Completed. The media is deleted only when
// every downstream hand-off succeeded; a failed hand-off keeps the file on
// disk and the failure has already been surfaced.
func (m *Machine) complete(a *active, res transcriber.Result, handoffFailed bool) {
	m.mu.Lock()
	a.snap.State = Completed
	a.snap.MediaKept = handoffFailed
	snap := a.snap
	m.mu.Unlock()
	log.Transition(snap.ID, Transcribing.String(), Completed.String(), res.Kind.String())
	m.opts.OnState(Completed)

	if !handoffFailed {
		a.rec.Discard()
	}
	m.retire(snap)
}

func (m *Machine) fail(a *active, from State, reason string, err error, mediaKept bool) {
	m.mu.Lock()
	a.snap.State = Failed
	a.snap.Err = err
	a.snap.MediaKept = mediaKept
	snap := a.snap
	m.mu.Unlock()
	log.Transition(snap.ID, from.String(), Failed.String(), reason)
	m.opts.OnState(Failed)
	m.retire(snap)
}

// retire puts the machine back in Idle and archives the session.
func (m *Machine) retire(snap Snapshot) {
	m.mu.Lock()
	m.cur = nil
	m.last = snap
	if snap.State == Completed {
		m.completed++
	}
	m.mu.Unlock()
}

// CaptureSupervisor adapts *capture.Supervisor to the machine's Supervisor
// interface.
type CaptureSupervisor struct {
	*capture.Supervisor
}

func (s CaptureSupervisor) Start(sessionID string, mode capture.Mode) (Handle, error) {
	h, err := s.Supervisor.Start(sessionID, mode)
	if err != nil {
		return nil, err
	}
	return h, nil
}
