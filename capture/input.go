package capture

import "runtime"

// defaultInputFormat picks the ffmpeg audio device demuxer native to the OS.
func defaultInputFormat() string {
	return inputFormatFor(runtime.GOOS)
}

func inputFormatFor(goos string) string {
	switch goos {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

// audioInputSpec renders the -i argument for the configured audio device in
// the syntax the active demuxer expects. avfoundation addresses audio as
// ":index"; pulse and alsa take the index directly.
func audioInputSpec(cfg Config) string {
	switch cfg.InputFormat {
	case "avfoundation":
		return ":" + itoa(cfg.AudioDevice)
	case "alsa":
		return "hw:" + itoa(cfg.AudioDevice)
	default:
		return itoa(cfg.AudioDevice)
	}
}
