package hotkey

import (
	"errors"
	"sync"
	"time"
)

// FakeSource is an in-memory Source for tests.
type FakeSource struct {
	mu        sync.Mutex
	events    chan Event
	registers int
	failAfter int // fail registrations once registers > failAfter; 0 = never
}

func NewFakeSource() *FakeSource {
	return &FakeSource{events: make(chan Event, 8)}
}

// FailAfter makes every registration past the nth fail.
func (f *FakeSource) FailAfter(n int) {
	f.mu.Lock()
	f.failAfter = n
	f.mu.Unlock()
}

func (f *FakeSource) Register(bindings []Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	if f.failAfter > 0 && f.registers > f.failAfter {
		return errors.New("fake source: registration refused")
	}
	return nil
}

func (f *FakeSource) Unregister() {}

func (f *FakeSource) Events() <-chan Event { return f.events }

// Registers reports how many times Register was called.
func (f *FakeSource) Registers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registers
}

// Press injects a chord press for the given action.
func (f *FakeSource) Press(a Action) {
	f.events <- Event{Action: a, At: time.Now()}
}

// PressAt injects a press with an explicit timestamp, for debounce tests.
func (f *FakeSource) PressAt(a Action, at time.Time) {
	f.events <- Event{Action: a, At: at}
}
