package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"livecap/internal/config"
	"livecap/internal/pactl"
)

type fakeCatalog struct {
	devices []Device
	err     error
	calls   int
}

func (f *fakeCatalog) Enumerate(ctx context.Context) ([]Device, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.devices, nil
}

type fakePulse struct {
	available     bool
	defaults      pactl.Defaults
	hasDefaults   bool
	defaultsCalls int
	restored      []pactl.Defaults
}

func (f *fakePulse) Available() bool { return f.available }

func (f *fakePulse) Defaults() (pactl.Defaults, bool) {
	f.defaultsCalls++
	return f.defaults, f.hasDefaults
}

func (f *fakePulse) RestoreDefaults(d pactl.Defaults) {
	f.restored = append(f.restored, d)
}

type scriptRecorder struct {
	calls    int
	argv     []string
	extraEnv []string
	err      error
}

func (s *scriptRecorder) run(ctx context.Context, argv []string, extraEnv []string) error {
	s.calls++
	s.argv = argv
	s.extraEnv = extraEnv
	return s.err
}

// chdirScripts moves the working directory to a fresh temp dir and
// optionally drops the Linux helper script into scripts/ there, so the
// manager's script lookup is hermetic.
func chdirScripts(t *testing.T, withLinuxScript bool) {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(prev) })

	if withLinuxScript {
		if err := os.Mkdir(filepath.Join(dir, "scripts"), 0755); err != nil {
			t.Fatal(err)
		}
		script := filepath.Join(dir, "scripts", "setup_audio_loopback_linux.sh")
		if err := os.WriteFile(script, []byte("#!/usr/bin/env bash\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func intPtr(v int) *int { return &v }

func TestPrepareFailsBeforeAnyMutationOnBadDeviceIndex(t *testing.T) {
	chdirScripts(t, true)
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "Monitor of Speakers", Inputs: 2},
	}}
	pulse := &fakePulse{available: true, defaults: pactl.Defaults{Sink: "s"}, hasDefaults: true}
	script := &scriptRecorder{}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio: config.AudioConfig{
			DeviceIndex:       intPtr(5),
			Mode:              "auto",
			AutoSetupLoopback: true,
		},
		Pulse:     pulse,
		RunScript: script.run,
		Logger:    zerolog.Nop(),
		GOOS:      "linux",
	})

	err := m.Prepare(context.Background(), Hints{})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if !errors.Is(err, ErrEnvironment) {
		t.Error("failure kinds must unwrap to ErrEnvironment")
	}
	if m.State() != StateFailed {
		t.Errorf("state = %s, want failed", m.State())
	}
	if script.calls != 0 {
		t.Error("helper script must not run before device presence is verified")
	}
	if pulse.defaultsCalls != 0 {
		t.Error("defaults must not be snapshotted before device presence is verified")
	}
	if m.rollback.Len() != 0 {
		t.Error("no rollback actions should be registered on early failure")
	}
}

func TestPrepareMicrophoneModeNeedsOnlyAnInput(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "USB Microphone", Inputs: 1},
	}}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio:   config.AudioConfig{Mode: "microphone"},
		Logger:  zerolog.Nop(),
		GOOS:    "linux",
	})

	if err := m.Prepare(context.Background(), Hints{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != StateReady {
		t.Errorf("state = %s, want ready", m.State())
	}
	if m.rollback.Len() != 0 {
		t.Error("microphone mode must not register rollback actions")
	}
}

func TestPrepareFailsWhenNoInputCapableDevices(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "HDMI Output", Inputs: 0, Outputs: 2},
	}}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio:   config.AudioConfig{Mode: "microphone"},
		Logger:  zerolog.Nop(),
		GOOS:    "linux",
	})

	if err := m.Prepare(context.Background(), Hints{}); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestPrepareLinuxWithoutPactlIsNonFatal(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "USB Microphone", Inputs: 1},
	}}
	script := &scriptRecorder{}

	m := NewManager(ManagerConfig{
		Catalog:   catalog,
		Audio:     config.AudioConfig{Mode: "loopback", AutoSetupLoopback: true},
		Pulse:     &fakePulse{available: false},
		RunScript: script.run,
		Logger:    zerolog.Nop(),
		GOOS:      "linux",
	})

	if err := m.Prepare(context.Background(), Hints{}); err != nil {
		t.Fatalf("missing pactl should degrade to a warning, got %v", err)
	}
	if script.calls != 0 {
		t.Error("no script should run when pactl is unavailable")
	}
	if m.rollback.Len() != 0 {
		t.Error("no rollback actions without pactl")
	}
}

func TestPrepareLinuxLoopbackAlreadyConfiguredVerifiesOnly(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "Monitor of Speakers", Inputs: 2},
	}}
	pulse := &fakePulse{available: true, defaults: pactl.Defaults{Sink: "s"}, hasDefaults: true}
	script := &scriptRecorder{}

	m := NewManager(ManagerConfig{
		Catalog:   catalog,
		Audio:     config.AudioConfig{Mode: "loopback", AutoSetupLoopback: true},
		Pulse:     pulse,
		RunScript: script.run,
		Logger:    zerolog.Nop(),
		GOOS:      "linux",
	})

	if err := m.Prepare(context.Background(), Hints{LoopbackConfigured: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.calls != 0 {
		t.Error("launcher already configured loopback; script must not run again")
	}
	if m.rollback.Len() != 0 {
		t.Error("verification-only prepare must not register rollback actions")
	}
}

func TestPrepareLinuxLoopbackAlreadyConfiguredButMissing(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "USB Microphone", Inputs: 1},
	}}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio:   config.AudioConfig{Mode: "loopback"},
		Pulse:   &fakePulse{available: true},
		Logger:  zerolog.Nop(),
		GOOS:    "linux",
	})

	err := m.Prepare(context.Background(), Hints{LoopbackConfigured: true})
	if !errors.Is(err, ErrNoLoopback) {
		t.Fatalf("expected ErrNoLoopback, got %v", err)
	}
}

func TestPrepareLinuxAutoSetupRunsScriptAndRegistersRollback(t *testing.T) {
	chdirScripts(t, true)
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "pipewire", Inputs: 64},
	}}
	pulse := &fakePulse{
		available:   true,
		defaults:    pactl.Defaults{Sink: "alsa_output.speakers", Source: "alsa_input.mic"},
		hasDefaults: true,
	}
	script := &scriptRecorder{}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio: config.AudioConfig{
			Mode:              "auto",
			AutoSetupLoopback: true,
			LoopbackSink:      "alsa_output.headphones",
		},
		Pulse:     pulse,
		RunScript: script.run,
		Logger:    zerolog.Nop(),
		GOOS:      "linux",
	})

	if err := m.Prepare(context.Background(), Hints{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State() != StateReady {
		t.Errorf("state = %s, want ready", m.State())
	}

	if script.calls != 1 {
		t.Fatalf("script ran %d times, want once", script.calls)
	}
	if script.argv[0] != "bash" || !strings.HasSuffix(script.argv[1], "setup_audio_loopback_linux.sh") {
		t.Errorf("unexpected script argv: %v", script.argv)
	}
	wantEnv := EnvSinkHint + "=alsa_output.headphones"
	found := false
	for _, kv := range script.extraEnv {
		if kv == wantEnv {
			found = true
		}
	}
	if !found {
		t.Errorf("extraEnv %v missing %q", script.extraEnv, wantEnv)
	}

	if m.rollback.Len() != 1 {
		t.Fatalf("expected 1 rollback action, got %d", m.rollback.Len())
	}

	m.Cleanup(context.Background())
	if m.State() != StateIdle {
		t.Errorf("state after cleanup = %s, want idle", m.State())
	}
	if len(pulse.restored) != 1 || pulse.restored[0] != pulse.defaults {
		t.Errorf("cleanup restored %v, want the captured defaults", pulse.restored)
	}
}

func TestPrepareLinuxScriptFailureRollsBackDefaults(t *testing.T) {
	chdirScripts(t, true)
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "pipewire", Inputs: 64},
	}}
	pulse := &fakePulse{
		available:   true,
		defaults:    pactl.Defaults{Sink: "alsa_output.speakers"},
		hasDefaults: true,
	}
	script := &scriptRecorder{err: errors.New("exit status 1")}

	m := NewManager(ManagerConfig{
		Catalog:   catalog,
		Audio:     config.AudioConfig{Mode: "loopback", AutoSetupLoopback: true},
		Pulse:     pulse,
		RunScript: script.run,
		Logger:    zerolog.Nop(),
		GOOS:      "linux",
	})

	err := m.Prepare(context.Background(), Hints{})
	if !errors.Is(err, ErrLoopbackSetup) {
		t.Fatalf("expected ErrLoopbackSetup, got %v", err)
	}
	if m.State() != StateFailed {
		t.Errorf("state = %s, want failed", m.State())
	}

	// The defaults snapshot was registered before the script ran, so
	// cleanup still reverses it.
	m.Cleanup(context.Background())
	if len(pulse.restored) != 1 {
		t.Errorf("cleanup restored defaults %d times, want once", len(pulse.restored))
	}
}

func TestPrepareLinuxNoCandidateAfterSetup(t *testing.T) {
	chdirScripts(t, false)
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "USB Microphone", Inputs: 1},
	}}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio:   config.AudioConfig{Mode: "loopback", AutoSetupLoopback: true},
		Pulse:   &fakePulse{available: true, defaults: pactl.Defaults{Sink: "s"}, hasDefaults: true},
		Logger:  zerolog.Nop(),
		GOOS:    "linux",
	})

	err := m.Prepare(context.Background(), Hints{})
	if !errors.Is(err, ErrNoLoopback) {
		t.Fatalf("expected ErrNoLoopback, got %v", err)
	}
}

func TestPrepareLinuxExplicitIndexOverridesMissingCandidate(t *testing.T) {
	chdirScripts(t, false)
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "USB Microphone", Inputs: 1},
	}}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio: config.AudioConfig{
			DeviceIndex: intPtr(0),
			Mode:        "loopback",
		},
		Pulse:  &fakePulse{available: true},
		Logger: zerolog.Nop(),
		GOOS:   "linux",
	})

	if err := m.Prepare(context.Background(), Hints{}); err != nil {
		t.Fatalf("explicit device index should bypass candidate detection, got %v", err)
	}
}

func TestPrepareWindowsScriptFailureIsNonFatal(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "Stereo Mix (Realtek)", Inputs: 2},
	}}
	script := &scriptRecorder{err: errors.New("exit status 1")}

	m := NewManager(ManagerConfig{
		Catalog:   catalog,
		Audio:     config.AudioConfig{Mode: "loopback", AutoSetupLoopback: true},
		RunScript: script.run,
		Logger:    zerolog.Nop(),
		GOOS:      "windows",
	})

	if err := m.Prepare(context.Background(), Hints{}); err != nil {
		t.Fatalf("script failure on windows must not be fatal, got %v", err)
	}
}

func TestPrepareDarwinFailsWithoutVirtualDevice(t *testing.T) {
	catalog := &fakeCatalog{devices: []Device{
		{Index: 0, Name: "MacBook Pro Microphone", Inputs: 1},
	}}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio:   config.AudioConfig{Mode: "loopback"},
		Logger:  zerolog.Nop(),
		GOOS:    "darwin",
	})

	err := m.Prepare(context.Background(), Hints{})
	if !errors.Is(err, ErrNoLoopback) {
		t.Fatalf("expected ErrNoLoopback, got %v", err)
	}
}

func TestPrepareEnumerationErrorSurfaces(t *testing.T) {
	catalog := &fakeCatalog{err: envErr(ErrEnumeration, "host gone")}

	m := NewManager(ManagerConfig{
		Catalog: catalog,
		Audio:   config.AudioConfig{Mode: "microphone"},
		Logger:  zerolog.Nop(),
		GOOS:    "linux",
	})

	err := m.Prepare(context.Background(), Hints{})
	if !errors.Is(err, ErrEnumeration) {
		t.Fatalf("expected ErrEnumeration, got %v", err)
	}
	if !errors.Is(err, ErrEnvironment) {
		t.Error("enumeration failures must unwrap to ErrEnvironment")
	}
}
