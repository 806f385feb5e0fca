package main

import (
	"github.com/rs/zerolog"

	"livecap/internal/config"
	"livecap/internal/logging"
)

// commandContext carries lazily loaded shared state between commands.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	cfg    *config.Config
	logger *zerolog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// ensureLogger builds the logger once; the --log-level flag overrides
// the configured level.
func (c *commandContext) ensureLogger() zerolog.Logger {
	if c.logger != nil {
		return *c.logger
	}
	level := *c.logLevelFlag
	if level == "" && c.cfg != nil {
		level = c.cfg.Logging.Level
	}
	logger := logging.NewWithLevel(level)
	c.logger = &logger
	return logger
}
