package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"livecap/internal/audio"
	"livecap/internal/config"
	"livecap/internal/pactl"
	"livecap/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var backendFlag string
	var transcriptLogFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prepare the audio environment and run the transcription pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cfg, backendFlag, transcriptLogFlag); err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg, ctx.ensureLogger())
		},
	}

	cmd.Flags().StringVar(&backendFlag, "backend", "", "Override the transcription backend")
	cmd.Flags().StringVar(&transcriptLogFlag, "transcript-log", "", "Override the transcript log file path")
	return cmd
}

// applyRunOverrides overlays the run command's flags onto the loaded
// configuration and revalidates when anything changed.
func applyRunOverrides(cfg *config.Config, backend, transcriptLog string) error {
	if backend == "" && transcriptLog == "" {
		return nil
	}
	if backend != "" {
		cfg.Pipeline.Backend = backend
	}
	if transcriptLog != "" {
		cfg.Pipeline.TranscriptLog = transcriptLog
	}
	return cfg.Validate()
}

// runPipeline prepares the environment, runs the selected backend under
// signal-driven cancellation, and guarantees cleanup after the pipeline
// has fully completed.
func runPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	host, err := audio.NewPortAudioHost()
	if err != nil {
		return err
	}
	defer host.Close()

	var pulse audio.PulseControl
	if runtime.GOOS == "linux" {
		pulse = pactl.New(log)
	}

	manager := audio.NewManager(audio.ManagerConfig{
		Catalog: host,
		Audio:   cfg.Audio,
		Pulse:   pulse,
		Logger:  log,
		GOOS:    runtime.GOOS,
	})

	if err := manager.Prepare(ctx, audio.HintsFromEnv()); err != nil {
		return err
	}
	// Rollback must run even when the run context was cancelled.
	defer manager.Cleanup(context.Background())

	runner, err := newRunner(cfg, host, log)
	if err != nil {
		return err
	}
	return pipeline.RunWithSignals(ctx, runner, log)
}

func newRunner(cfg *config.Config, host *audio.PortAudioHost, log zerolog.Logger) (pipeline.Runner, error) {
	switch cfg.Pipeline.Backend {
	case "monitor":
		return &pipeline.LevelMonitor{
			Capture:     host,
			DeviceIndex: cfg.Audio.DeviceIndex,
			SampleRate:  cfg.Audio.SampleRate,
			Log:         log,
		}, nil
	case "speechmatics":
		return nil, fmt.Errorf("backend %q is not bundled with this build; use \"monitor\"", cfg.Pipeline.Backend)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Pipeline.Backend)
	}
}
