package audio

import (
	"errors"
	"fmt"
)

// ErrEnvironment is the root marker for every audio environment
// preparation failure. The CLI boundary matches on it to present a
// plain message instead of an internal trace.
var ErrEnvironment = errors.New("audio environment")

// Failure kinds. Each wraps ErrEnvironment, so errors.Is works against
// both the specific kind and the root marker.
var (
	ErrEnumeration       = sentinel("device enumeration failed")
	ErrDeviceUnavailable = sentinel("capture device unavailable")
	ErrLoopbackSetup     = sentinel("loopback setup failed")
	ErrNoLoopback        = sentinel("no loopback input detected")
)

func sentinel(kind string) error {
	return fmt.Errorf("%w: %s", ErrEnvironment, kind)
}

// envErr tags a formatted message with one of the failure kinds above.
func envErr(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
