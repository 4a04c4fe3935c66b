package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/config"
	"github.com/mmcdole/crate/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.LoadConfig(c.configPath())
	})
	return c.config, c.configErr
}

// setupLogger builds the process logger and installs it as the slog default.
// Falls back to a null logger when the log file cannot be opened.
func (c *commandContext) setupLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, func()) {
	logger, closeLog, err := logging.Setup(cfg, console)
	if err != nil {
		logger = logging.NullLogger()
		closeLog = func() error { return nil }
	}
	slog.SetDefault(logger)
	return logger, func() { _ = closeLog() }
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
