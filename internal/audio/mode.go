package audio

import (
	"fmt"
	"strings"
)

// CaptureMode selects how the pipeline acquires audio.
type CaptureMode string

const (
	ModeAuto       CaptureMode = "auto"
	ModeMicrophone CaptureMode = "microphone"
	ModeLoopback   CaptureMode = "loopback"
	ModeAPI        CaptureMode = "api"
)

// ParseMode converts a config string into a CaptureMode.
func ParseMode(value string) (CaptureMode, error) {
	switch CaptureMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAuto:
		return ModeAuto, nil
	case ModeMicrophone:
		return ModeMicrophone, nil
	case ModeLoopback:
		return ModeLoopback, nil
	case ModeAPI:
		return ModeAPI, nil
	default:
		return "", fmt.Errorf("unknown capture mode %q", value)
	}
}

// ResolveMode maps the configured mode and platform to the effective
// capture mode. Auto becomes loopback on the three platforms with
// loopback support and microphone anywhere else; explicit modes pass
// through unchanged. Pure, no side effects.
func ResolveMode(mode CaptureMode, goos string) CaptureMode {
	if mode != ModeAuto {
		return mode
	}
	switch goos {
	case "linux", "windows", "darwin":
		return ModeLoopback
	default:
		return ModeMicrophone
	}
}
