package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type funcRunner func(ctx context.Context) error

func (f funcRunner) Run(ctx context.Context) error { return f(ctx) }

type fakeCapture struct {
	startErr error
	stopped  bool
}

func (f *fakeCapture) Start(ctx context.Context, deviceIndex *int, sampleRate int, out chan<- []float32) error {
	if f.startErr != nil {
		return f.startErr
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case out <- []float32{0.5, -0.5}:
			}
		}
	}()
	return nil
}

func (f *fakeCapture) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeCapture) Close() error { return nil }

func TestRunWithSignalsPropagatesRunnerError(t *testing.T) {
	want := errors.New("backend exploded")
	err := RunWithSignals(context.Background(), funcRunner(func(context.Context) error {
		return want
	}), zerolog.Nop())

	if !errors.Is(err, want) {
		t.Fatalf("expected runner error to propagate, got %v", err)
	}
}

func TestRunWithSignalsCleanExit(t *testing.T) {
	err := RunWithSignals(context.Background(), funcRunner(func(context.Context) error {
		return nil
	}), zerolog.Nop())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunWithSignalsCancellationIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunWithSignals(ctx, funcRunner(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), zerolog.Nop())

	if err != nil {
		t.Fatalf("cooperative cancellation should read as a clean stop, got %v", err)
	}
}

func TestLevelMonitorStopsOnCancel(t *testing.T) {
	capture := &fakeCapture{}
	monitor := &LevelMonitor{
		Capture:    capture,
		SampleRate: 16000,
		Interval:   10 * time.Millisecond,
		Log:        zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := monitor.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !capture.stopped {
		t.Error("the capture stream should be stopped on the way out")
	}
}

func TestLevelMonitorSurfacesStartFailure(t *testing.T) {
	want := errors.New("no such device")
	monitor := &LevelMonitor{
		Capture:    &fakeCapture{startErr: want},
		SampleRate: 16000,
		Log:        zerolog.Nop(),
	}

	err := monitor.Run(context.Background())
	if !errors.Is(err, want) {
		t.Fatalf("expected start failure to surface, got %v", err)
	}
}
