package audio

import "strings"

// Loopback classification is keyword-driven and inherently fuzzy: it
// never has ground truth, so it is modeled as one fixed rule table per
// platform. Both call shapes below apply the identical rules, keeping
// prepare and diagnose from ever disagreeing.

type classifierRule struct {
	keywords []string
	// extra covers platform quirks the keyword list cannot express.
	extra func(name string, inputs int, sinkHint string) bool
}

var rulesByPlatform = map[string]classifierRule{
	"linux": {
		keywords: []string{"monitor", "loopback"},
		extra: func(name string, inputs int, sinkHint string) bool {
			if sinkHint != "" && name == sinkHint {
				return true
			}
			// PipeWire exposes a many-channel virtual device that carries
			// monitor streams; a single-channel one is a plain microphone.
			return (name == "pipewire" || name == "default") && inputs >= 2
		},
	},
	"windows": {
		keywords: []string{"loopback", "stereo mix", "cable output", "cable input", "virtual"},
		extra: func(name string, inputs int, sinkHint string) bool {
			return strings.Contains(name, "loopback") && strings.Contains(name, "wasapi")
		},
	},
	"darwin": {
		keywords: []string{"blackhole", "loopback", "soundflower", "aggregate", "multi-output"},
	},
}

func matchesLoopback(d Device, goos, sinkHint string) bool {
	if d.Inputs <= 0 {
		return false
	}
	rule, ok := rulesByPlatform[goos]
	if !ok {
		return false
	}
	name := strings.ToLower(d.Name)
	for _, kw := range rule.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	if rule.extra != nil {
		return rule.extra(name, d.Inputs, strings.ToLower(sinkHint))
	}
	return false
}

// Candidates collects every loopback-capable input device, in
// enumeration order. Used by diagnostics.
func Candidates(devices []Device, goos, sinkHint string) []Device {
	var out []Device
	for _, d := range devices {
		if matchesLoopback(d, goos, sinkHint) {
			out = append(out, d)
		}
	}
	return out
}

// HasCandidate reports whether any loopback-capable input device exists.
// Used by preparation, which only needs existence.
func HasCandidate(devices []Device, goos, sinkHint string) bool {
	for _, d := range devices {
		if matchesLoopback(d, goos, sinkHint) {
			return true
		}
	}
	return false
}
