package audio

import "os"

// Environment variable names shared with the helper scripts and any
// child process the easy-start flow launches.
const (
	// EnvLoopbackConfigured tells a child that loopback routing was
	// already prepared by the launcher; preparation then only verifies.
	EnvLoopbackConfigured = "AUDIO_LOOPBACK_ALREADY_SET"
	// EnvSinkHint names the sink whose monitor should carry system audio.
	EnvSinkHint = "HEADPHONE_SINK"
)

// Hints carries launcher-to-preparation signals explicitly instead of
// through ambient process state. The environment variables above remain
// the contract with helper scripts and child processes; Export bridges
// to them.
type Hints struct {
	LoopbackConfigured bool
	SinkName           string
}

// HintsFromEnv reads the hints a wrapping launcher may have exported.
func HintsFromEnv() Hints {
	return Hints{
		LoopbackConfigured: os.Getenv(EnvLoopbackConfigured) == "1",
		SinkName:           os.Getenv(EnvSinkHint),
	}
}

// Export applies the hints to the process environment and returns a
// restore function that reinstates the exact prior state: a variable
// absent beforehand is removed again, a present one gets its original
// value back. Callers must invoke restore on every exit path.
func (h Hints) Export() (restore func()) {
	type prior struct {
		value  string
		wasSet bool
	}
	saved := map[string]prior{}

	set := func(key, value string) {
		v, ok := os.LookupEnv(key)
		saved[key] = prior{value: v, wasSet: ok}
		os.Setenv(key, value)
	}

	if h.LoopbackConfigured {
		set(EnvLoopbackConfigured, "1")
	}
	if h.SinkName != "" {
		set(EnvSinkHint, h.SinkName)
	}

	return func() {
		for key, p := range saved {
			if p.wasSet {
				os.Setenv(key, p.value)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}
