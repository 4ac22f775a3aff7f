package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/logging"

	"github.com/mattn/go-isatty"
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

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to stderr so command output on stdout stays clean.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// withApp builds the application, runs fn and releases everything.
func (c *commandContext) withApp(ctx context.Context, mode app.PlayerMode, fn func(*app.App, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return err
	}
	application, cleanup, err := app.Build(ctx, cfg, logger, mode)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(application, logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
