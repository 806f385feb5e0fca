package audio

import "context"

// Device describes one capture/playback device as reported by the host
// audio subsystem. The Index is only valid for the enumeration call that
// produced it; devices can appear or vanish between calls.
type Device struct {
	Index             int
	Name              string
	HostAPI           string
	Inputs            int
	Outputs           int
	DefaultSampleRate float64 // 0 when unknown
}

// Catalog enumerates audio devices. Implementations must query the host
// fresh on every call; results are never cached across a prepare or
// diagnose boundary.
type Catalog interface {
	Enumerate(ctx context.Context) ([]Device, error)
}

// Capture defines the interface for the audio capture stream feeding the
// pipeline. Frames delivered on out are mono float32.
type Capture interface {
	Start(ctx context.Context, deviceIndex *int, sampleRate int, out chan<- []float32) error
	Stop() error
	Close() error
}
