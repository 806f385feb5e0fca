package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration, layered as
// defaults -> TOML file -> environment overrides.
type Config struct {
	Audio    AudioConfig    `toml:"audio"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Logging  LoggingConfig  `toml:"logging"`
}

// AudioConfig controls capture-device selection and loopback preparation.
type AudioConfig struct {
	// DeviceIndex pins a capture device; nil selects automatically. The
	// index is only meaningful against the enumeration that validates it.
	DeviceIndex       *int   `toml:"device_index"`
	Mode              string `toml:"mode"` // auto, microphone, loopback, api
	AutoSetupLoopback bool   `toml:"auto_setup_loopback"`
	// LoopbackSink names the Linux sink whose monitor carries system audio.
	LoopbackSink string `toml:"loopback_sink"`
	SampleRate   int    `toml:"sample_rate"`
}

// PipelineConfig selects the transcription backend fed by the capture stream.
type PipelineConfig struct {
	Backend       string `toml:"backend"`
	APIKey        string `toml:"api_key"`
	TranscriptLog string `toml:"transcript_log"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

var validModes = map[string]struct{}{
	"auto": {}, "microphone": {}, "loopback": {}, "api": {},
}

var validBackends = map[string]struct{}{
	"monitor": {}, "speechmatics": {},
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Mode:              "auto",
			AutoSetupLoopback: true,
			SampleRate:        16000,
		},
		Pipeline: PipelineConfig{
			Backend: "monitor",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (or the platform default location when
// path is empty), applies environment overrides, and validates the result.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults + environment only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the environment variables the launcher scripts and the
// easy-start flow use to communicate with a child process.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("AUDIO_DEVICE_INDEX"); v != "" {
		if idx, err := strconv.Atoi(v); err == nil && idx >= 0 {
			cfg.Audio.DeviceIndex = &idx
		}
	}
	if v := getenv("AUDIO_CAPTURE_MODE"); v != "" {
		cfg.Audio.Mode = strings.ToLower(v)
	}
	if v := getenv("AUDIO_AUTO_SETUP_LOOPBACK"); v != "" {
		cfg.Audio.AutoSetupLoopback = v == "1" || strings.EqualFold(v, "true")
	}
	if v := getenv("HEADPHONE_SINK"); v != "" {
		cfg.Audio.LoopbackSink = v
	}
	if v := getenv("SPEECHMATICS_API_KEY"); v != "" {
		cfg.Pipeline.APIKey = v
	}
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.Audio.Mode))
	if _, ok := validModes[mode]; !ok {
		return fmt.Errorf("audio.mode: unsupported value %q", c.Audio.Mode)
	}
	c.Audio.Mode = mode

	if c.Audio.DeviceIndex != nil && *c.Audio.DeviceIndex < 0 {
		return fmt.Errorf("audio.device_index: must be >= 0, got %d", *c.Audio.DeviceIndex)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate: must be positive, got %d", c.Audio.SampleRate)
	}

	backend := strings.ToLower(strings.TrimSpace(c.Pipeline.Backend))
	if _, ok := validBackends[backend]; !ok {
		return fmt.Errorf("pipeline.backend: unsupported value %q", c.Pipeline.Backend)
	}
	c.Pipeline.Backend = backend

	return nil
}

// Redacted returns a copy safe for printing: credentials are masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Pipeline.APIKey != "" {
		out.Pipeline.APIKey = "***redacted***"
	}
	return out
}

// DefaultPath returns the platform-specific config file path
func DefaultPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "livecap", "config.toml")
}
