// Package session owns the lifecycle of a recording: from hotkey trigger
// through subprocess capture, transcription, text insertion, metrics, and
// media cleanup. All transitions run on a single goroutine fed by one
// ordered event queue, so no two events are ever applied concurrently.
package session

import (
	"time"

	"github.com/ykdojo/osh/capture"
)

// State is where a session is in its lifecycle.
type State int

const (
	Idle State = iota
	Recording
	Stopping
	AwaitingTranscription
	Transcribing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case AwaitingTranscription:
		return "awaiting_transcription"
	case Transcribing:
		return "transcribing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether the state excludes starting another session.
func (s State) Active() bool {
	return s != Idle && s != Completed && s != Failed
}

// StopReason records what ended the capture phase.
type StopReason int

const (
	StopNone StopReason = iota
	// StopManualHotkey is the toggle chord pressed again, or the dedicated
	// stop chord.
	StopManualHotkey
	// StopManualInterrupt is the interrupt key; only honored while the
	// session is recording.
	StopManualInterrupt
	// StopDurationLimit is the capture ceiling expiring.
	StopDurationLimit
	// StopDeviceError is the capture subprocess dying mid-recording.
	StopDeviceError
)

func (r StopReason) String() string {
	switch r {
	case StopManualHotkey:
		return "manual_hotkey"
	case StopManualInterrupt:
		return "manual_interrupt"
	case StopDurationLimit:
		return "duration_limit"
	case StopDeviceError:
		return "device_error"
	default:
		return "none"
	}
}

// Command is an externally originated instruction for the machine: the two
// capture toggles, the stop chord, and the interrupt key.
type Command int

const (
	CmdToggleAudio Command = iota
	CmdToggleScreen
	CmdManualStop
	CmdInterrupt
)

func (c Command) String() string {
	switch c {
	case CmdToggleAudio:
		return "toggle_audio"
	case CmdToggleScreen:
		return "toggle_screen"
	case CmdManualStop:
		return "manual_stop"
	case CmdInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of a session, safe to hold after the
// session retires.
type Snapshot struct {
	ID         string
	Mode       capture.Mode
	State      State
	StartedAt  time.Time
	StoppedAt  time.Time
	OutputPath string
	StopReason StopReason
	Transcript string
	// MediaKept reports whether the recording survived cleanup, either
	// because the session failed or because a hand-off did.
	MediaKept bool
	Err       error
}
