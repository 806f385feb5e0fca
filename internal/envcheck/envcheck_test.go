package envcheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"livecap/internal/audio"
	"livecap/internal/config"
)

type fakeCatalog struct {
	devices []audio.Device
	err     error
}

func (f *fakeCatalog) Enumerate(ctx context.Context) ([]audio.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.devices, nil
}

func TestCheckConfig(t *testing.T) {
	if r := CheckConfig(nil); r.Passed {
		t.Error("nil config must fail")
	}

	bad := config.Default()
	bad.Audio.Mode = "telepathy"
	if r := CheckConfig(bad); r.Passed {
		t.Error("invalid config must fail")
	}

	r := CheckConfig(config.Default())
	if !r.Passed {
		t.Errorf("default config should pass: %s", r.Detail)
	}
	if !strings.Contains(r.Detail, "mode=auto") {
		t.Errorf("detail should summarize the config, got %q", r.Detail)
	}
}

func TestCheckHelperScript(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(prev) })

	if r := CheckHelperScript("linux"); r.Passed {
		t.Error("missing helper script must fail on linux")
	}

	if err := os.Mkdir(filepath.Join(dir, "scripts"), 0755); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "scripts", "setup_audio_loopback_linux.sh")
	if err := os.WriteFile(script, []byte("#!/usr/bin/env bash\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if r := CheckHelperScript("linux"); !r.Passed {
		t.Errorf("helper script present but check failed: %s", r.Detail)
	}

	if r := CheckHelperScript("plan9"); !r.Passed {
		t.Error("platforms without a helper pass with manual-routing advice")
	}
}

func TestCheckControlTool(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/pactl", nil }
	missing := func(string) (string, error) { return "", errors.New("not found") }

	if r := CheckControlTool(found); !r.Passed {
		t.Errorf("expected pass, got %s", r.Detail)
	}
	if r := CheckControlTool(missing); r.Passed {
		t.Error("missing pactl must fail")
	}
}

func TestCheckInputDevices(t *testing.T) {
	if r := CheckInputDevices(context.Background(), &fakeCatalog{err: errors.New("host gone")}); r.Passed {
		t.Error("enumeration failure must fail")
	}

	outputOnly := &fakeCatalog{devices: []audio.Device{
		{Name: "HDMI Output", Outputs: 2},
	}}
	if r := CheckInputDevices(context.Background(), outputOnly); r.Passed {
		t.Error("no input-capable devices must fail")
	}

	mixed := &fakeCatalog{devices: []audio.Device{
		{Name: "HDMI Output", Outputs: 2},
		{Name: "USB Microphone", Inputs: 1},
	}}
	r := CheckInputDevices(context.Background(), mixed)
	if !r.Passed {
		t.Errorf("expected pass, got %s", r.Detail)
	}
	if !strings.Contains(r.Detail, "1 input-capable of 2") {
		t.Errorf("detail = %q", r.Detail)
	}
}

func TestCheckBackendCredentials(t *testing.T) {
	cfg := config.Default()
	if r := CheckBackendCredentials(cfg); !r.Passed {
		t.Error("monitor backend needs no credentials")
	}

	cfg.Pipeline.Backend = "speechmatics"
	if r := CheckBackendCredentials(cfg); r.Passed {
		t.Error("speechmatics without a key must fail")
	}

	cfg.Pipeline.APIKey = "sk-test"
	if r := CheckBackendCredentials(cfg); !r.Passed {
		t.Error("speechmatics with a key should pass")
	}
}

func TestCheckLogDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	if r := CheckLogDirectory(dir); !r.Passed {
		t.Errorf("creatable directory should pass: %s", r.Detail)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("check should have created the directory")
	}

	if r := CheckLogDirectory(""); !r.Passed {
		t.Error("unset directory is not an error")
	}
}

func TestReady(t *testing.T) {
	all := []Result{{Passed: true}, {Passed: true}}
	if !Ready(all) {
		t.Error("all passing should be ready")
	}
	one := []Result{{Passed: true}, {Name: "x"}}
	if Ready(one) {
		t.Error("a single failure blocks readiness")
	}
	if !Ready(nil) {
		t.Error("no checks means nothing failed")
	}
}

func TestRunAllSkipsLinuxOnlyChecks(t *testing.T) {
	catalog := &fakeCatalog{devices: []audio.Device{{Name: "Mic", Inputs: 1}}}

	results := RunAll(context.Background(), config.Default(), catalog, "darwin")
	var permissionAdvice bool
	for _, r := range results {
		if r.Name == "Audio control tool" {
			t.Error("pactl check must not run outside linux")
		}
		if r.Name == "Microphone permission" {
			permissionAdvice = true
			if !r.Passed {
				t.Error("the permission advisory must never block readiness")
			}
		}
	}
	if !permissionAdvice {
		t.Error("darwin should carry the microphone permission advisory")
	}
}
