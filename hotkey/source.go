package hotkey

import (
	"fmt"
	"sync"
	"time"

	xhk "golang.design/x/hotkey"
)

// xSource subscribes to global chords through golang.design/x/hotkey.
// One Events channel is kept across re-registrations so a watchdog-triggered
// re-subscribe never loses an already-delivered press.
type xSource struct {
	mu     sync.Mutex
	events chan Event
	hks    []*xhk.Hotkey
	stops  []chan struct{}
}

// NewSource returns the OS-backed chord source.
func NewSource() Source {
	return &xSource{events: make(chan Event, 8)}
}

func (s *xSource) Register(bindings []Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unregisterLocked()

	for _, b := range bindings {
		mods, key, err := systemChord(b.Chord)
		if err != nil {
			s.unregisterLocked()
			return err
		}
		hk := xhk.New(mods, key)
		if err := hk.Register(); err != nil {
			s.unregisterLocked()
			return fmt.Errorf("hotkey: register %s: %w", b.Chord, err)
		}
		stop := make(chan struct{})
		s.hks = append(s.hks, hk)
		s.stops = append(s.stops, stop)
		go s.forward(hk, b.Action, stop)
	}
	return nil
}

func (s *xSource) forward(hk *xhk.Hotkey, action Action, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-hk.Keydown():
			select {
			case s.events <- Event{Action: action, At: time.Now()}:
			default:
				// Consumer stalled; dropping beats blocking the OS hook.
			}
		}
	}
}

func (s *xSource) Events() <-chan Event { return s.events }

func (s *xSource) Unregister() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterLocked()
}

func (s *xSource) unregisterLocked() {
	for _, stop := range s.stops {
		close(stop)
	}
	for _, hk := range s.hks {
		hk.Unregister()
	}
	s.hks = nil
	s.stops = nil
}

func systemKey(r rune) (xhk.Key, error) {
	switch {
	case r >= 'a' && r <= 'z':
		return letterKeys[r-'a'], nil
	case r >= '0' && r <= '9':
		return digitKeys[r-'0'], nil
	}
	return 0, fmt.Errorf("hotkey: no system key for %q", r)
}

var letterKeys = [26]xhk.Key{
	xhk.KeyA, xhk.KeyB, xhk.KeyC, xhk.KeyD, xhk.KeyE, xhk.KeyF, xhk.KeyG,
	xhk.KeyH, xhk.KeyI, xhk.KeyJ, xhk.KeyK, xhk.KeyL, xhk.KeyM, xhk.KeyN,
	xhk.KeyO, xhk.KeyP, xhk.KeyQ, xhk.KeyR, xhk.KeyS, xhk.KeyT, xhk.KeyU,
	xhk.KeyV, xhk.KeyW, xhk.KeyX, xhk.KeyY, xhk.KeyZ,
}

var digitKeys = [10]xhk.Key{
	xhk.Key0, xhk.Key1, xhk.Key2, xhk.Key3, xhk.Key4,
	xhk.Key5, xhk.Key6, xhk.Key7, xhk.Key8, xhk.Key9,
}
