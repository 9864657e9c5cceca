package session

import (
	"context"
	"sync"
	"time"

	"github.com/ykdojo/osh/capture"
	"github.com/ykdojo/osh/transcriber"
)

// FakeSupervisor hands out scripted recordings and tracks how many are live
// at once. Live means started and not yet asked to stop; two live
// recordings would be two captures racing for the microphone.
type FakeSupervisor struct {
	mu       sync.Mutex
	StartErr error
	StopErr  error
	StopPath string

	started []*FakeRecording
	live    int
	maxLive int
}

func (f *FakeSupervisor) Start(sessionID string, mode capture.Mode) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	rec := &FakeRecording{
		sup:     f,
		Path:    f.StopPath,
		StopErr: f.StopErr,
		Mode:    mode,
	}
	if rec.Path == "" {
		rec.Path = "/tmp/fake_" + sessionID + ".wav"
	}
	f.started = append(f.started, rec)
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	return rec, nil
}

func (f *FakeSupervisor) release() {
	f.mu.Lock()
	f.live--
	f.mu.Unlock()
}

// Starts returns every recording handed out so far.
func (f *FakeSupervisor) Starts() []*FakeRecording {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeRecording(nil), f.started...)
}

// MaxLive is the most recordings that were ever live simultaneously.
func (f *FakeSupervisor) MaxLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLive
}

// FakeRecording is a scripted capture Handle.
type FakeRecording struct {
	sup *FakeSupervisor

	Path    string
	StopErr error
	Mode    capture.Mode

	mu        sync.Mutex
	stopped   bool
	killed    bool
	discarded bool
}

func (r *FakeRecording) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	first := !r.stopped && !r.killed
	r.stopped = true
	r.mu.Unlock()
	if first && r.sup != nil {
		r.sup.release()
	}
	if r.StopErr != nil {
		return "", r.StopErr
	}
	return r.Path, nil
}

func (r *FakeRecording) ForceKill() {
	r.mu.Lock()
	first := !r.stopped && !r.killed
	r.killed = true
	r.mu.Unlock()
	if first && r.sup != nil {
		r.sup.release()
	}
}

func (r *FakeRecording) Discard() {
	r.mu.Lock()
	r.discarded = true
	r.mu.Unlock()
}

func (r *FakeRecording) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *FakeRecording) Discarded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discarded
}

// FakePipeline returns a scripted result. A non-nil Gate makes Run block
// until the gate closes, to hold a session in Transcribing.
type FakePipeline struct {
	Result transcriber.Result
	Err    error
	Gate   chan struct{}

	mu   sync.Mutex
	reqs []transcriber.Request
}

func (f *FakePipeline) Run(ctx context.Context, sessionID string, req transcriber.Request) (transcriber.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return transcriber.Result{}, ctx.Err()
		}
	}
	return f.Result, f.Err
}

func (f *FakePipeline) Requests() []transcriber.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcriber.Request(nil), f.reqs...)
}

// FakeMetrics records hand-offs and can be forced to fail.
type FakeMetrics struct {
	Err error

	mu      sync.Mutex
	records []MetricsRecordCall
}

// MetricsRecordCall is one captured Record invocation.
type MetricsRecordCall struct {
	At           time.Time
	Chars, Words int
}

func (f *FakeMetrics) Record(ts time.Time, characters, words int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.records = append(f.records, MetricsRecordCall{ts, characters, words})
	return nil
}

func (f *FakeMetrics) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *FakeMetrics) Records() []MetricsRecordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MetricsRecordCall(nil), f.records...)
}

// FakeSink collects inserted text.
type FakeSink struct {
	Err error

	mu    sync.Mutex
	texts []string
}

func (f *FakeSink) Insert(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *FakeSink) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// FakeGlossary is a fixed term list.
type FakeGlossary struct {
	List []string
}

func (f *FakeGlossary) Terms() []string { return f.List }
