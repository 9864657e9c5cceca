// Package beep plays short audible cues so the user knows a recording
// started or stopped without looking at a terminal.
package beep

// Cue identifies one of the audible feedback sounds.
type Cue int

const (
	CueStart Cue = iota // recording began
	CueStop             // recording finalized, transcription underway
	CueError            // session failed or device unavailable
)

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Stop cue: medium pitch, slightly longer
	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)
