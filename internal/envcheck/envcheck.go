// Package envcheck runs the readiness checks gating easy-start: the
// configuration parses, the platform helper tooling exists, and audio
// capture has at least one usable input.
package envcheck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"livecap/internal/audio"
	"livecap/internal/config"
)

// Result reports the outcome of a single readiness check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the platform.
func RunAll(ctx context.Context, cfg *config.Config, catalog audio.Catalog, goos string) []Result {
	results := []Result{
		CheckConfig(cfg),
		CheckHelperScript(goos),
	}
	if goos == "linux" {
		results = append(results, CheckControlTool(exec.LookPath))
	}
	if goos == "darwin" {
		// Capture permission cannot be probed without a native prompt;
		// surface it as advice instead.
		results = append(results, Result{
			Name:   "Microphone permission",
			Passed: true,
			Detail: "grant access under System Settings > Privacy & Security on first capture",
		})
	}
	results = append(results,
		CheckInputDevices(ctx, catalog),
		CheckBackendCredentials(cfg),
	)
	if cfg != nil && cfg.Pipeline.TranscriptLog != "" {
		results = append(results, CheckLogDirectory(filepath.Dir(cfg.Pipeline.TranscriptLog)))
	}
	return results
}

// Ready reports whether every check passed.
func Ready(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// CheckConfig verifies the loaded configuration validates.
func CheckConfig(cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: "Configuration", Detail: "configuration not loaded"}
	}
	if err := cfg.Validate(); err != nil {
		return Result{Name: "Configuration", Detail: err.Error()}
	}
	return Result{Name: "Configuration", Passed: true,
		Detail: fmt.Sprintf("mode=%s backend=%s", cfg.Audio.Mode, cfg.Pipeline.Backend)}
}

// CheckHelperScript verifies the platform loopback helper is on disk.
func CheckHelperScript(goos string) Result {
	path, _, ok := audio.SetupScript(goos)
	if !ok {
		return Result{Name: "Loopback helper", Passed: true,
			Detail: "no helper for this platform; manual routing"}
	}
	if !audio.ScriptExists(path) {
		return Result{Name: "Loopback helper", Detail: fmt.Sprintf("missing %s", path)}
	}
	return Result{Name: "Loopback helper", Passed: true, Detail: filepath.Base(path)}
}

// CheckControlTool verifies the Linux audio-server control tool is on
// PATH.
func CheckControlTool(lookPath func(string) (string, error)) Result {
	if _, err := lookPath("pactl"); err != nil {
		return Result{Name: "Audio control tool", Detail: "pactl not found on PATH"}
	}
	return Result{Name: "Audio control tool", Passed: true, Detail: "pactl"}
}

// CheckInputDevices verifies enumeration works and at least one
// input-capable device exists.
func CheckInputDevices(ctx context.Context, catalog audio.Catalog) Result {
	devices, err := catalog.Enumerate(ctx)
	if err != nil {
		return Result{Name: "Audio devices", Detail: err.Error()}
	}
	inputs := 0
	for _, d := range devices {
		if d.Inputs > 0 {
			inputs++
		}
	}
	if inputs == 0 {
		return Result{Name: "Audio devices", Detail: "no input-capable devices"}
	}
	return Result{Name: "Audio devices", Passed: true,
		Detail: fmt.Sprintf("%d input-capable of %d", inputs, len(devices))}
}

// CheckBackendCredentials verifies the configured backend has the
// credentials it needs.
func CheckBackendCredentials(cfg *config.Config) Result {
	if cfg == nil || cfg.Pipeline.Backend != "speechmatics" {
		return Result{Name: "Backend credentials", Passed: true, Detail: "not required"}
	}
	if cfg.Pipeline.APIKey == "" {
		return Result{Name: "Backend credentials",
			Detail: "SPEECHMATICS_API_KEY (or pipeline.api_key) is not set"}
	}
	return Result{Name: "Backend credentials", Passed: true, Detail: "api key present"}
}

// CheckLogDirectory verifies a directory exists (or can be created) and
// is writable. Used for transcript log destinations.
func CheckLogDirectory(dir string) Result {
	if dir == "" {
		return Result{Name: "Log directory", Passed: true, Detail: "not configured"}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{Name: "Log directory", Detail: err.Error()}
	}
	probe := filepath.Join(dir, ".livecap-writecheck")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return Result{Name: "Log directory", Detail: err.Error()}
	}
	os.Remove(probe)
	return Result{Name: "Log directory", Passed: true, Detail: dir}
}
