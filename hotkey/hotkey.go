// Package hotkey turns global key chords into recording actions. It owns the
// always-on OS subscription, collapses key repeats, and self-heals when the
// subscription silently stops delivering events.
package hotkey

import (
	"fmt"
	"strings"
	"time"
)

// Action is an abstract recording trigger emitted on a matching chord.
type Action int

const (
	ToggleAudio Action = iota
	ToggleScreen
	ManualStop
)

func (a Action) String() string {
	switch a {
	case ToggleAudio:
		return "toggle_audio"
	case ToggleScreen:
		return "toggle_screen"
	case ManualStop:
		return "manual_stop"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Scope reports whether the listener currently sees key events globally or
// is running impaired after a failed re-subscription.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeDegraded Scope = "degraded"
)

// Binding ties a parsed chord to the action it triggers. Bindings are static
// configuration, fixed for the life of the process.
type Binding struct {
	Chord  Chord
	Action Action
}

// Event is one chord press as delivered by a Source.
type Event struct {
	Action Action
	At     time.Time
}

// Source is the OS-level chord subscription. Register may be called again
// after a watchdog trip; the Events channel must survive re-registration so
// in-flight events are neither dropped nor duplicated.
type Source interface {
	Register(bindings []Binding) error
	Unregister()
	Events() <-chan Event
}

// Chord is a parsed modifier+key combination.
type Chord struct {
	Mods []Modifier
	Key  rune
	raw  string
}

// Modifier names one held modifier key in a chord.
type Modifier int

const (
	ModCtrl Modifier = iota
	ModShift
	ModAlt
	ModSuper
)

func (c Chord) String() string { return c.raw }

// ParseChord parses strings like "ctrl+shift+a" or "shift+alt+x" into a
// Chord. The final element must be a single letter or digit; everything
// before it must be a known modifier.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("hotkey: chord %q needs at least one modifier and a key", s)
	}

	c := Chord{raw: s}
	for _, p := range parts[:len(parts)-1] {
		switch strings.TrimSpace(p) {
		case "ctrl", "control":
			c.Mods = append(c.Mods, ModCtrl)
		case "shift":
			c.Mods = append(c.Mods, ModShift)
		case "alt", "option", "opt":
			c.Mods = append(c.Mods, ModAlt)
		case "cmd", "super", "win", "meta":
			c.Mods = append(c.Mods, ModSuper)
		default:
			return Chord{}, fmt.Errorf("hotkey: unknown modifier %q in chord %q", p, s)
		}
	}

	keyPart := strings.TrimSpace(parts[len(parts)-1])
	if len(keyPart) != 1 {
		return Chord{}, fmt.Errorf("hotkey: chord %q must end in a single letter or digit", s)
	}
	key := rune(keyPart[0])
	if !((key >= 'a' && key <= 'z') || (key >= '0' && key <= '9')) {
		return Chord{}, fmt.Errorf("hotkey: unsupported key %q in chord %q", keyPart, s)
	}
	c.Key = key
	return c, nil
}
