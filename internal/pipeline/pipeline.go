// Package pipeline hosts the cancellable capture pipeline boundary. The
// speech-recognition backends themselves live behind Runner; this
// package owns signal-driven cancellation and the built-in monitor
// backend used to verify that loopback routing carries audio.
package pipeline

import (
	"context"
	"errors"
	"math"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"livecap/internal/audio"
)

// Runner is the transcription pipeline at its boundary: it runs until
// the context is cancelled or the stream ends, then returns.
type Runner interface {
	Run(ctx context.Context) error
}

// RunWithSignals binds termination signals (and suspend, where the
// platform has it) to cooperative cancellation of the runner, then
// waits for the runner's full completion before returning. Devices are
// therefore released before any caller-side rollback executes. The
// handler only cancels; shutdown happens on the control flow.
func RunWithSignals(ctx context.Context, r Runner, log zerolog.Logger) error {
	sigCtx, stop := signal.NotifyContext(ctx, cancellationSignals()...)
	defer stop()

	err := r.Run(sigCtx)
	if sigCtx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		log.Info().Msg("Pipeline stopped on signal")
		return nil
	}
	return err
}

// LevelMonitor is the built-in backend: it opens the configured capture
// device and periodically reports the input level, so a user can
// confirm the loopback route is actually carrying audio before wiring
// up a transcription backend.
type LevelMonitor struct {
	Capture     audio.Capture
	DeviceIndex *int
	SampleRate  int
	Interval    time.Duration
	Log         zerolog.Logger
}

// Run streams until ctx is cancelled.
func (m *LevelMonitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	frames := make(chan []float32, 8)
	if err := m.Capture.Start(ctx, m.DeviceIndex, m.SampleRate, frames); err != nil {
		return err
	}
	defer m.Capture.Stop()

	m.Log.Info().Msg("Monitoring input level; stop with Ctrl+C")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sumSquares float64
	var count int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case samples := <-frames:
			for _, s := range samples {
				sumSquares += float64(s) * float64(s)
			}
			count += len(samples)
		case <-ticker.C:
			if count == 0 {
				m.Log.Warn().Msg("No audio frames received; the capture route may be silent or misconfigured")
				continue
			}
			rms := math.Sqrt(sumSquares / float64(count))
			m.Log.Info().Float64("rms", rms).Float64("dbfs", dbfs(rms)).Msg("Input level")
			sumSquares, count = 0, 0
		}
	}
}

func dbfs(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
