package audio

import (
	"context"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"livecap/internal/config"
	"livecap/internal/pactl"
)

// State tracks the environment manager lifecycle:
// Idle -> Preparing -> {Ready | Failed} -> CleaningUp -> Idle.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateReady
	StateFailed
	StateCleaningUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateCleaningUp:
		return "cleaning-up"
	default:
		return "unknown"
	}
}

// PulseControl is the slice of the Linux audio-server surface the
// manager needs. *pactl.Client satisfies it.
type PulseControl interface {
	Available() bool
	Defaults() (pactl.Defaults, bool)
	RestoreDefaults(pactl.Defaults)
}

// ScriptFunc executes a helper script. extraEnv entries are KEY=VALUE
// pairs appended to the inherited environment.
type ScriptFunc func(ctx context.Context, argv []string, extraEnv []string) error

// RunScript is the default ScriptFunc: a blocking child process with
// inherited stdio.
func RunScript(ctx context.Context, argv []string, extraEnv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Catalog   Catalog
	Audio     config.AudioConfig
	Pulse     PulseControl // nil outside Linux
	RunScript ScriptFunc   // nil selects RunScript
	Logger    zerolog.Logger
	GOOS      string
}

// Manager prepares platform-specific audio routing for the configured
// capture mode and guarantees every mutation it makes is reversible.
type Manager struct {
	catalog   Catalog
	cfg       config.AudioConfig
	pulse     PulseControl
	runScript ScriptFunc
	log       zerolog.Logger
	goos      string

	state         State
	rollback      RollbackStack
	defaultsSaved bool
}

// NewManager constructs an environment manager.
func NewManager(cfg ManagerConfig) *Manager {
	run := cfg.RunScript
	if run == nil {
		run = RunScript
	}
	return &Manager{
		catalog:   cfg.Catalog,
		cfg:       cfg.Audio,
		pulse:     cfg.Pulse,
		runScript: run,
		log:       cfg.Logger,
		goos:      cfg.GOOS,
	}
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Prepare ensures the effective capture mode has a viable device or
// routing. All failures unwrap to ErrEnvironment; no system mutation
// happens before device presence is verified.
func (m *Manager) Prepare(ctx context.Context, hints Hints) error {
	m.state = StatePreparing
	m.rollback = RollbackStack{}
	m.defaultsSaved = false

	mode, err := ParseMode(m.cfg.Mode)
	if err != nil {
		m.state = StateFailed
		return envErr(ErrDeviceUnavailable, "%v", err)
	}
	effective := ResolveMode(mode, m.goos)
	m.log.Debug().Str("mode", string(effective)).Msg("Preparing audio environment")

	if err := m.ensureDevicePresence(ctx); err != nil {
		m.state = StateFailed
		return err
	}

	switch effective {
	case ModeMicrophone:
		// Nothing to route
	case ModeAPI:
		m.log.Info().Msg("Capture mode is 'api'; ensure external media ingestion is configured")
	case ModeLoopback:
		if err := m.prepareLoopback(ctx, hints); err != nil {
			m.state = StateFailed
			return err
		}
	}

	m.state = StateReady
	return nil
}

// Cleanup rolls back every environment change made during Prepare, in
// reverse order of registration. It never fails outward.
func (m *Manager) Cleanup(ctx context.Context) {
	m.state = StateCleaningUp
	m.rollback.Run(ctx, m.log)
	m.state = StateIdle
}

func (m *Manager) ensureDevicePresence(ctx context.Context) error {
	devices, err := m.catalog.Enumerate(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return envErr(ErrDeviceUnavailable, "no audio devices detected by PortAudio")
	}

	if m.cfg.DeviceIndex != nil {
		index := *m.cfg.DeviceIndex
		if index < 0 || index >= len(devices) {
			return envErr(ErrDeviceUnavailable,
				"configured device index %d is outside the available range (0-%d)", index, len(devices)-1)
		}
		device := devices[index]
		if device.Inputs <= 0 {
			return envErr(ErrDeviceUnavailable, "configured device %q has no input channels", device.Name)
		}
		m.log.Debug().Int("index", index).Str("device", device.Name).
			Int("inputs", device.Inputs).Msg("Configured audio device resolved")
		return nil
	}

	for _, device := range devices {
		if device.Inputs > 0 {
			return nil
		}
	}
	return envErr(ErrDeviceUnavailable, "no input-capable audio devices detected")
}

func (m *Manager) prepareLoopback(ctx context.Context, hints Hints) error {
	switch m.goos {
	case "linux":
		return m.prepareLinuxLoopback(ctx, hints)
	case "windows":
		return m.prepareSoftLoopback(ctx,
			"no Windows loopback-capable input detected; configure 'Stereo Mix', WASAPI loopback, or a virtual cable")
	case "darwin":
		return m.prepareSoftLoopback(ctx,
			"no macOS loopback device detected; install BlackHole or create an aggregate device")
	default:
		m.log.Warn().Str("platform", m.goos).
			Msg("Loopback capture not explicitly supported on this platform; ensure routing manually")
		return nil
	}
}

func (m *Manager) prepareLinuxLoopback(ctx context.Context, hints Hints) error {
	if m.pulse == nil || !m.pulse.Available() {
		m.log.Warn().Msg("pactl not found; cannot auto-configure loopback, select a monitor source manually")
		return nil
	}

	if hints.LoopbackConfigured {
		m.log.Debug().Msg("Loopback already set by launcher; verifying availability only")
		if m.cfg.DeviceIndex == nil {
			found, err := m.detectCandidate(ctx, hints)
			if err != nil {
				return err
			}
			if !found {
				return envErr(ErrNoLoopback, "loopback flag set but no monitor source detected")
			}
		}
		return nil
	}

	if m.cfg.AutoSetupLoopback {
		if defaults, ok := m.pulse.Defaults(); ok && !m.defaultsSaved {
			// At most one defaults-restore per prepare session.
			m.defaultsSaved = true
			m.rollback.Push("restore default sink/source", func(context.Context) error {
				m.pulse.RestoreDefaults(defaults)
				return nil
			})
		}

		path, argv, _ := SetupScript(m.goos)
		if ScriptExists(path) {
			var extraEnv []string
			if sink := m.sinkHint(hints); sink != "" {
				extraEnv = append(extraEnv, EnvSinkHint+"="+sink)
			}
			if err := m.runScript(ctx, argv, extraEnv); err != nil {
				return envErr(ErrLoopbackSetup, "loopback helper script %s failed: %v", path, err)
			}
		} else {
			m.log.Debug().Str("script", path).Msg("Loopback helper script not found; skipping auto-setup")
		}
	}

	found, err := m.detectCandidate(ctx, hints)
	if err != nil {
		return err
	}
	if !found {
		if m.cfg.DeviceIndex == nil {
			return envErr(ErrNoLoopback,
				"no loopback-capable input detected after setup; verify a monitor source is available and not muted")
		}
		m.log.Debug().Int("index", *m.cfg.DeviceIndex).
			Msg("No loopback candidates found, but an explicit device index is configured; continuing")
	}
	return nil
}

// prepareSoftLoopback covers Windows and macOS: the helper script is
// optional and its failure is never fatal, only post-attempt detection
// determines pass/fail.
func (m *Manager) prepareSoftLoopback(ctx context.Context, failureMsg string) error {
	if m.cfg.AutoSetupLoopback {
		path, argv, ok := SetupScript(m.goos)
		if ok && ScriptExists(path) {
			if err := m.runScript(ctx, argv, nil); err != nil {
				m.log.Warn().Err(err).Str("script", path).
					Msg("Loopback helper exited with an error; continuing with verification")
			}
		} else {
			m.log.Debug().Str("script", path).Msg("Loopback helper script not found; skipping auto-setup")
		}
	}

	if m.cfg.DeviceIndex != nil {
		return nil
	}
	found, err := m.detectCandidate(ctx, Hints{})
	if err != nil {
		return err
	}
	if !found {
		return envErr(ErrNoLoopback, "%s", failureMsg)
	}
	return nil
}

// detectCandidate re-enumerates and applies the classifier; device
// lists are never reused across the setup attempt.
func (m *Manager) detectCandidate(ctx context.Context, hints Hints) (bool, error) {
	devices, err := m.catalog.Enumerate(ctx)
	if err != nil {
		return false, err
	}
	return HasCandidate(devices, m.goos, m.sinkHint(hints)), nil
}

func (m *Manager) sinkHint(hints Hints) string {
	if m.cfg.LoopbackSink != "" {
		return m.cfg.LoopbackSink
	}
	return hints.SinkName
}
