package capture

import "fmt"

// DeviceError reports a capture device that is missing, unreadable, or
// failed before any media was produced.
type DeviceError struct {
	Reason string
}

func (e *DeviceError) Error() string {
	return "capture device: " + e.Reason
}

// MuxError reports that the screen and audio parts could not be combined
// into a single deliverable. The part files are retained for inspection.
type MuxError struct {
	Reason string
}

func (e *MuxError) Error() string {
	return "mux: " + e.Reason
}

// StopTimeoutError reports that ffmpeg did not finalize within the stop
// grace period and had to be force-killed. The output file is likely
// truncated or missing its container trailer.
type StopTimeoutError struct {
	Grace string
}

func (e *StopTimeoutError) Error() string {
	return fmt.Sprintf("capture did not finalize within %s, force-killed", e.Grace)
}
