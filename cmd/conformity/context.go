package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/worker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
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
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = cfg.Observability.NewLogger()
	})
	return c.config, c.configErr
}

// withStack builds the pipeline for one command and releases it afterward.
func (c *commandContext) withStack(ctx context.Context, fn func(*config.Config, *worker.Stack) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	stack, err := worker.NewStack(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			c.logger.Warn("failed to close stack", "error", err)
		}
	}()
	return fn(cfg, stack)
}
