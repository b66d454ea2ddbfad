package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/slipstream/feedgrab/internal/config"
	"github.com/slipstream/feedgrab/internal/database"
	"github.com/slipstream/feedgrab/internal/downloader/transmission"
	"github.com/slipstream/feedgrab/internal/history"
	"github.com/slipstream/feedgrab/internal/logger"
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
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// newLogger builds the process logger. Console output goes to errOut so that
// command output on stdout stays clean.
func (c *commandContext) newLogger(errOut io.Writer) *logger.Logger {
	cfg := c.config.LoggerConfig()
	cfg.Out = errOut
	return logger.New(cfg)
}

func (c *commandContext) newQueue(log *logger.Logger) *transmission.Client {
	return transmission.NewFromConfig(c.config.QueueConfig(), log.Logger)
}

// openHistory opens the history store. It returns nil when history is disabled.
func (c *commandContext) openHistory(ctx context.Context, log *logger.Logger) (*history.Service, func(), error) {
	if strings.TrimSpace(c.config.History.Path) == "" {
		return nil, func() {}, nil
	}
	db, err := database.Open(ctx, c.config.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return history.NewService(db.Conn(), log.Logger), func() { _ = db.Close() }, nil
}
