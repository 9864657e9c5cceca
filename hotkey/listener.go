package hotkey

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ykdojo/osh/log"
)

// StatusFunc receives degraded-mode notices for the UI layer.
type StatusFunc func(scope Scope, reason string)

// Options tunes the listener. Zero values pick sane defaults.
type Options struct {
	// Debounce collapses repeated presses of the same chord (key repeat
	// while held) into a single action.
	Debounce time.Duration

	// WatchdogInterval is how long the listener tolerates total silence
	// from the OS subscription before re-registering its chords. The
	// observed failure mode is a subscription that goes deaf or shrinks
	// to the focused window after extended runtime; re-registering
	// restores global scope.
	WatchdogInterval time.Duration

	// OnStatus, if set, is told when the listener degrades or recovers.
	OnStatus StatusFunc
}

const (
	defaultDebounce = 300 * time.Millisecond
	defaultWatchdog = 2 * time.Minute
)

// Listener owns the chord subscription for the life of the process and
// emits exactly one Action per physical chord press.
type Listener struct {
	src      Source
	bindings []Binding
	opts     Options

	actions   chan Action
	lastEvent atomic.Int64 // unix nanos of most recent source event
	scope     atomic.Value // Scope
	stop      chan struct{}
	closeOnce sync.Once

	// resubscribes counts watchdog-triggered re-registrations, for tests.
	resubscribes atomic.Int64
}

// NewListener wires a source to a set of bindings. Call Start to attach.
func NewListener(src Source, bindings []Binding, opts Options) *Listener {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.WatchdogInterval <= 0 {
		opts.WatchdogInterval = defaultWatchdog
	}
	l := &Listener{
		src:      src,
		bindings: bindings,
		opts:     opts,
		actions:  make(chan Action, 4),
		stop:     make(chan struct{}),
	}
	l.scope.Store(ScopeGlobal)
	return l
}

// Start registers the chords and begins emitting actions.
func (l *Listener) Start() error {
	if err := l.src.Register(l.bindings); err != nil {
		return err
	}
	l.lastEvent.Store(time.Now().UnixNano())
	go l.run()
	go l.watchdog()
	return nil
}

// Actions is the ordered stream of debounced chord actions.
func (l *Listener) Actions() <-chan Action { return l.actions }

// Scope reports whether global key capture is currently healthy.
func (l *Listener) Scope() Scope { return l.scope.Load().(Scope) }

// Close detaches from the OS subscription.
func (l *Listener) Close() {
	l.closeOnce.Do(func() {
		close(l.stop)
		l.src.Unregister()
	})
}

func (l *Listener) run() {
	var prevAction Action
	var prevAt time.Time
	for {
		select {
		case <-l.stop:
			return
		case ev := <-l.src.Events():
			l.lastEvent.Store(time.Now().UnixNano())
			// The window re-arms on every repeat, so a held chord is one
			// press no matter how long it is held; only a quiet gap longer
			// than the debounce starts a new press.
			repeat := !prevAt.IsZero() && ev.Action == prevAction && ev.At.Sub(prevAt) < l.opts.Debounce
			prevAction = ev.Action
			prevAt = ev.At
			if repeat {
				continue
			}
			select {
			case l.actions <- ev.Action:
			case <-l.stop:
				return
			}
		}
	}
}

func (l *Listener) watchdog() {
	ticker := time.NewTicker(l.opts.WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			last := time.Unix(0, l.lastEvent.Load())
			if time.Since(last) < l.opts.WatchdogInterval {
				continue
			}
			l.resubscribe()
		}
	}
}

// resubscribe re-registers the chords after detected staleness. The source
// keeps its event channel across registrations, so a press already in
// flight is neither dropped nor duplicated.
func (l *Listener) resubscribe() {
	log.Listener("stale", string(l.Scope()))
	if err := l.src.Register(l.bindings); err != nil {
		l.scope.Store(ScopeDegraded)
		log.Listener("degraded", string(ScopeDegraded))
		if l.opts.OnStatus != nil {
			l.opts.OnStatus(ScopeDegraded, err.Error())
		}
		return
	}
	l.resubscribes.Add(1)
	l.lastEvent.Store(time.Now().UnixNano())
	if l.Scope() == ScopeDegraded && l.opts.OnStatus != nil {
		l.opts.OnStatus(ScopeGlobal, "resubscribed")
	}
	l.scope.Store(ScopeGlobal)
	log.Listener("resubscribed", string(ScopeGlobal))
}
