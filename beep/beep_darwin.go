//go:build darwin

package beep

import "os/exec"

// System sounds shipped with macOS. afplay keeps this package free of an
// in-process audio stack on darwin.
var cueSounds = map[Cue]string{
	CueStart: "/System/Library/Sounds/Pop.aiff",
	CueStop:  "/System/Library/Sounds/Bottle.aiff",
	CueError: "/System/Library/Sounds/Basso.aiff",
}

func Init() {}

// Play sounds the cue asynchronously. Playback failures are silent: cues are
// best-effort feedback, never part of session control flow.
func Play(cue Cue) {
	if disabled {
		return
	}
	sound, ok := cueSounds[cue]
	if !ok {
		return
	}
	go func() {
		_ = exec.Command("afplay", sound).Run()
	}()
}
