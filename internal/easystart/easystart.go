// Package easystart drives the guided flow: readiness check, audio
// diagnostics, optional loopback setup, pipeline launch, and the
// rollback that must follow on every path.
package easystart

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"livecap/internal/audio"
	"livecap/internal/pactl"
)

// PulseControl is the Linux audio-server surface the orchestrator
// needs. *pactl.Client satisfies it.
type PulseControl interface {
	Available() bool
	Defaults() (pactl.Defaults, bool)
	RestoreDefaults(pactl.Defaults)
	Modules() pactl.ModuleSnapshot
	UnloadModules(pactl.ModuleSnapshot)
	EnsurePhysicalDefaults()
}

// Orchestrator wires the collaborating subsystems. Every field is
// injectable so the flow is testable without touching real OS state.
type Orchestrator struct {
	Check       func(ctx context.Context) bool  // readiness check
	Diagnose    func(ctx context.Context) error // prints the diagnostic report
	Pulse       PulseControl                    // nil outside Linux
	RunScript   audio.ScriptFunc
	RunPipeline func(ctx context.Context) error
	Prompt      func(message string, defaultYes bool) bool
	Out         io.Writer
	Log         zerolog.Logger
	GOOS        string

	// ScriptPath and ScriptArgv identify the platform loopback helper;
	// HasScript is false when it is absent from disk.
	ScriptPath string
	ScriptArgv []string
	HasScript  bool
}

// Run performs the easy-start flow and reports readiness. In
// non-interactive mode nothing is launched: captured defaults are
// restored best-effort and physical defaults re-enforced.
func (o *Orchestrator) Run(ctx context.Context, interactive bool) bool {
	if !o.Check(ctx) {
		fmt.Fprintln(o.Out, "Environment check found problems; fix the reported items and retry.")
		return false
	}

	if err := o.Diagnose(ctx); err != nil {
		if errors.Is(err, audio.ErrEnvironment) {
			fmt.Fprintf(o.Out, "Audio environment error: %v\n", err)
		} else {
			fmt.Fprintf(o.Out, "Diagnostics failed: %v\n", err)
		}
		return false
	}

	linux := o.GOOS == "linux" && o.Pulse != nil && o.Pulse.Available()

	var defaultsBefore *pactl.Defaults
	modulesBefore := pactl.NewModuleSnapshot()
	toUnload := pactl.NewModuleSnapshot()
	if linux {
		if d, ok := o.Pulse.Defaults(); ok {
			defaultsBefore = &d
		}
		modulesBefore = o.Pulse.Modules()
	}

	if !interactive {
		if linux {
			if defaultsBefore != nil {
				o.Pulse.RestoreDefaults(*defaultsBefore)
			}
			o.Pulse.EnsurePhysicalDefaults()
		}
		return true
	}

	if o.HasScript {
		if o.Prompt(fmt.Sprintf("Run %s to set up loopback routing?", o.ScriptPath), false) {
			err := o.RunScript(ctx, o.ScriptArgv, nil)
			if linux {
				toUnload = pactl.Diff(modulesBefore, o.Pulse.Modules())
			}
			if err != nil {
				fmt.Fprintf(o.Out, "Loopback helper failed: %v\n", err)
				if linux {
					if defaultsBefore != nil {
						o.Pulse.RestoreDefaults(*defaultsBefore)
					}
					o.Pulse.UnloadModules(toUnload)
				}
				return false
			}
		} else {
			// Declined: nothing was mutated on our behalf, so nothing to
			// restore after the run either.
			defaultsBefore = nil
		}
	}

	if o.Prompt("Environment is ready. Start transcription now?", true) {
		o.launchPipeline(ctx, linux, defaultsBefore)
	} else {
		fmt.Fprintln(o.Out, "Skipped pipeline launch; start it any time with `livecap run`.")
	}

	if linux {
		if defaultsBefore != nil {
			o.Pulse.RestoreDefaults(*defaultsBefore)
		}
		o.Pulse.UnloadModules(toUnload)
		o.Pulse.EnsurePhysicalDefaults()
	}
	return true
}

// launchPipeline runs the pipeline with the environment hints exported
// for the duration of the run. The hints are restored to their exact
// prior state on every exit path, including cancellation.
func (o *Orchestrator) launchPipeline(ctx context.Context, linux bool, defaultsBefore *pactl.Defaults) {
	restore := func() {}
	if linux {
		hints := audio.Hints{LoopbackConfigured: true}
		if defaultsBefore != nil {
			hints.SinkName = defaultsBefore.Sink
		}
		restore = hints.Export()
	}
	defer restore()

	if err := o.RunPipeline(ctx); err != nil {
		o.Log.Warn().Err(err).Msg("Pipeline exited with an error")
	}
}
