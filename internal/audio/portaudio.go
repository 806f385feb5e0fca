package audio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type PortAudioHost struct {
	stream *portaudio.Stream
}

// NewPortAudioHost initializes PortAudio and returns a combined Catalog
// and Capture backed by it. Close must be called to release the host.
func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioHost{}, nil
}

// Enumerate queries the device set fresh. Indices are positional within
// this result only.
func (p *PortAudioHost) Enumerate(ctx context.Context) ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, envErr(ErrEnumeration, "failed to enumerate audio devices: %v", err)
	}

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, Device{
			Index:             i,
			Name:              info.Name,
			HostAPI:           hostAPIName(info, i),
			Inputs:            info.MaxInputChannels,
			Outputs:           info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

// hostAPIName falls back to the device's positional index when the host
// API cannot be resolved.
func hostAPIName(info *portaudio.DeviceInfo, index int) string {
	if info.HostApi != nil && info.HostApi.Name != "" {
		return info.HostApi.Name
	}
	return fmt.Sprintf("%d", index)
}

// Start opens the selected (or default) input device and streams mono
// float32 frames on out until ctx is cancelled.
func (p *PortAudioHost) Start(ctx context.Context, deviceIndex *int, sampleRate int, out chan<- []float32) error {
	var device *portaudio.DeviceInfo
	if deviceIndex == nil {
		var err error
		device, err = portaudio.DefaultInputDevice()
		if err != nil {
			return fmt.Errorf("failed to get default input device: %w", err)
		}
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return fmt.Errorf("failed to enumerate devices: %w", err)
		}
		if *deviceIndex < 0 || *deviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (0-%d)", *deviceIndex, len(devices)-1)
		}
		device = devices[*deviceIndex]
	}

	if device.MaxInputChannels <= 0 {
		return fmt.Errorf("device %q has no input channels", device.Name)
	}

	// Monitor sources are usually stereo; capture up to two channels and
	// downmix so the pipeline always sees mono.
	channels := device.MaxInputChannels
	if channels > 2 {
		channels = 2
	}

	const framesPerBuffer = 512
	buffer := make([]float32, framesPerBuffer*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, buffer)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	p.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	// Read loop
	go func() {
		defer stream.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := stream.Read(); err != nil {
					return
				}
				samples := downmixInterleaved(buffer, channels, framesPerBuffer)

				select {
				case out <- samples:
				case <-ctx.Done():
					return
				default:
					// Drop if channel full (backpressure)
				}
			}
		}
	}()

	return nil
}

func (p *PortAudioHost) Stop() error {
	if p.stream != nil {
		return p.stream.Stop()
	}
	return nil
}

func (p *PortAudioHost) Close() error {
	if p.stream != nil {
		p.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

// downmixInterleaved averages interleaved multi-channel frames into a
// fresh mono slice. Mono input is copied, never aliased, because the
// caller reuses its buffer.
func downmixInterleaved(input []float32, channels, frames int) []float32 {
	out := make([]float32, frames)
	if channels <= 1 {
		copy(out, input[:frames])
		return out
	}
	for frame := 0; frame < frames; frame++ {
		var sum float32
		base := frame * channels
		for ch := 0; ch < channels; ch++ {
			sum += input[base+ch]
		}
		out[frame] = sum / float32(channels)
	}
	return out
}
