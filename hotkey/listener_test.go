package hotkey

import (
	"testing"
	"time"
)

func testBindings(t *testing.T) []Binding {
	t.Helper()
	audio, err := ParseChord("shift+alt+x")
	if err != nil {
		t.Fatal(err)
	}
	screen, err := ParseChord("shift+alt+z")
	if err != nil {
		t.Fatal(err)
	}
	return []Binding{
		{Chord: audio, Action: ToggleAudio},
		{Chord: screen, Action: ToggleScreen},
	}
}

func collect(t *testing.T, ch <-chan Action, n int, timeout time.Duration) []Action {
	t.Helper()
	var got []Action
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case a := <-ch:
			got = append(got, a)
		case <-deadline:
			return got
		}
	}
	return got
}

func TestListenerEmitsActions(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	l := NewListener(src, testBindings(t), Options{})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	src.Press(ToggleAudio)
	src.Press(ToggleScreen)

	got := collect(t, l.Actions(), 2, time.Second)
	if len(got) != 2 || got[0] != ToggleAudio || got[1] != ToggleScreen {
		t.Errorf("actions = %v", got)
	}
}

func TestListenerDebouncesHeldChord(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	l := NewListener(src, testBindings(t), Options{Debounce: 300 * time.Millisecond})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// A held chord produces key-repeat events tens of ms apart.
	base := time.Now()
	src.PressAt(ToggleAudio, base)
	src.PressAt(ToggleAudio, base.Add(50*time.Millisecond))
	src.PressAt(ToggleAudio, base.Add(100*time.Millisecond))
	// A second physical press past the debounce window.
	src.PressAt(ToggleAudio, base.Add(500*time.Millisecond))

	got := collect(t, l.Actions(), 3, 500*time.Millisecond)
	if len(got) != 2 {
		t.Errorf("got %d actions %v, want 2", len(got), got)
	}
}

func TestListenerHeldChordIsOnePress(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	l := NewListener(src, testBindings(t), Options{Debounce: 300 * time.Millisecond})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// A chord held for a full second: key repeat fires every 50ms, so the
	// train outlasts the debounce window several times over. The window
	// re-arms on each repeat, so this is still one physical press.
	base := time.Now()
	for off := time.Duration(0); off <= time.Second; off += 50 * time.Millisecond {
		src.PressAt(ToggleAudio, base.Add(off))
	}

	got := collect(t, l.Actions(), 2, 500*time.Millisecond)
	if len(got) != 1 {
		t.Errorf("one held chord emitted %d actions (%v), want 1", len(got), got)
	}

	// Releasing and pressing again after a quiet gap is a new press.
	src.PressAt(ToggleAudio, base.Add(time.Second+400*time.Millisecond))
	got = collect(t, l.Actions(), 1, time.Second)
	if len(got) != 1 {
		t.Errorf("press after quiet gap emitted %d actions, want 1", len(got))
	}
}

func TestListenerDebounceAllowsDifferentAction(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	l := NewListener(src, testBindings(t), Options{Debounce: 300 * time.Millisecond})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	base := time.Now()
	src.PressAt(ToggleAudio, base)
	src.PressAt(ToggleScreen, base.Add(50*time.Millisecond))

	got := collect(t, l.Actions(), 2, time.Second)
	if len(got) != 2 {
		t.Errorf("got %v, want both actions", got)
	}
}

func TestWatchdogResubscribesWithoutSpuriousAction(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	l := NewListener(src, testBindings(t), Options{WatchdogInterval: 50 * time.Millisecond})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// Silence longer than the staleness threshold.
	deadline := time.Now().Add(2 * time.Second)
	for l.resubscribes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if l.resubscribes.Load() == 0 {
		t.Fatal("watchdog never resubscribed")
	}
	if src.Registers() < 2 {
		t.Errorf("Registers() = %d, want at least 2", src.Registers())
	}
	if l.Scope() != ScopeGlobal {
		t.Errorf("Scope() = %v, want global", l.Scope())
	}

	select {
	case a := <-l.Actions():
		t.Errorf("spurious action %v after resubscribe", a)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchdogDegradesOnRegisterFailure(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	src.FailAfter(1) // initial registration succeeds, re-registrations fail

	var notices []Scope
	noticeCh := make(chan Scope, 4)
	l := NewListener(src, testBindings(t), Options{
		WatchdogInterval: 50 * time.Millisecond,
		OnStatus: func(scope Scope, reason string) {
			noticeCh <- scope
		},
	})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	select {
	case s := <-noticeCh:
		notices = append(notices, s)
	case <-time.After(2 * time.Second):
		t.Fatal("no degraded notice")
	}
	if notices[0] != ScopeDegraded {
		t.Errorf("notice = %v, want degraded", notices[0])
	}
	if l.Scope() != ScopeDegraded {
		t.Errorf("Scope() = %v, want degraded", l.Scope())
	}
}

func TestPressInFlightSurvivesResubscribe(t *testing.T) {
	t.Parallel()

	src := NewFakeSource()
	l := NewListener(src, testBindings(t), Options{WatchdogInterval: 50 * time.Millisecond})
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// Wait for at least one resubscribe, then press: the event channel is
	// the same one, so the press must come through exactly once.
	deadline := time.Now().Add(2 * time.Second)
	for l.resubscribes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	src.Press(ManualStop)

	got := collect(t, l.Actions(), 2, 300*time.Millisecond)
	if len(got) != 1 || got[0] != ManualStop {
		t.Errorf("actions = %v, want exactly one ManualStop", got)
	}
}
