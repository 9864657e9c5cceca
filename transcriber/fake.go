package transcriber

import (
	"context"
	"sync"
)

// FakeBackend is a scripted Backend for tests. Each call consumes the next
// scripted reply; the last reply repeats once the script runs out.
type FakeBackend struct {
	mu      sync.Mutex
	replies []FakeReply
	calls   int
	lastReq Request
}

type FakeReply struct {
	Text string
	Err  error
}

func NewFakeBackend(replies ...FakeReply) *FakeBackend {
	return &FakeBackend{replies: replies}
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) Transcribe(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	idx := f.calls
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	f.calls++
	if idx < 0 {
		return "", nil
	}
	reply := f.replies[idx]
	return reply.Text, reply.Err
}

// Calls reports how many transcription attempts reached the backend.
func (f *FakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastRequest returns the most recent request, for asserting on prompt
// inputs like glossary terms.
func (f *FakeBackend) LastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}
