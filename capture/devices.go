package capture

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"
)

// DeviceList holds the capture devices ffmpeg reported, keyed by the index
// used to address them. Screens is the subset of video devices that are
// display grabs rather than cameras.
type DeviceList struct {
	Audio   map[int]string
	Video   map[int]string
	Screens map[int]string
}

// LastScreen returns the highest screen index, the conventional default on
// multi-display setups.
func (d DeviceList) LastScreen() int {
	last := -1
	for idx := range d.Screens {
		if idx > last {
			last = idx
		}
	}
	return last
}

func listDevices(cfg Config) (DeviceList, error) {
	if cfg.InputFormat != "avfoundation" {
		// Only avfoundation supports -list_devices. Other demuxers resolve
		// the device at open time, so the precheck trusts the config.
		return DeviceList{
			Audio:   map[int]string{cfg.AudioDevice: "default"},
			Video:   map[int]string{},
			Screens: map[int]string{},
		}, nil
	}

	cmd := exec.Command(cfg.FFmpegPath, "-hide_banner", "-f", cfg.InputFormat, "-list_devices", "true", "-i", "")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// ffmpeg exits non-zero after listing because "" is not an openable
	// input. The listing on stderr is still complete.
	runErr := cmd.Run()

	devices := parseAVFoundationDevices(stderr.String())
	if len(devices.Audio) == 0 && len(devices.Video) == 0 {
		if runErr != nil {
			return DeviceList{}, runErr
		}
	}
	return devices, nil
}

// parseAVFoundationDevices reads the device listing ffmpeg prints on stderr:
//
//	[AVFoundation indev @ 0x...] AVFoundation video devices:
//	[AVFoundation indev @ 0x...] [0] FaceTime HD Camera
//	[AVFoundation indev @ 0x...] [1] Capture screen 0
//	[AVFoundation indev @ 0x...] AVFoundation audio devices:
//	[AVFoundation indev @ 0x...] [0] MacBook Pro Microphone
func parseAVFoundationDevices(out string) DeviceList {
	devices := DeviceList{
		Audio:   map[int]string{},
		Video:   map[int]string{},
		Screens: map[int]string{},
	}

	section := ""
	for _, line := range strings.Split(out, "\n") {
		_, rest, ok := strings.Cut(line, "] ")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(rest, "AVFoundation video devices"):
			section = "video"
			continue
		case strings.HasPrefix(rest, "AVFoundation audio devices"):
			section = "audio"
			continue
		}

		if !strings.HasPrefix(rest, "[") {
			continue
		}
		idxStr, name, ok := strings.Cut(rest[1:], "] ")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}

		switch section {
		case "audio":
			devices.Audio[idx] = name
		case "video":
			devices.Video[idx] = name
			if strings.HasPrefix(name, "Capture screen") {
				devices.Screens[idx] = name
			}
		}
	}
	return devices
}
