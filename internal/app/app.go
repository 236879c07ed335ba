// Package app assembles the invocation handler from loaded configuration.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"embulkshim/internal/config"
	"embulkshim/internal/engine"
	"embulkshim/internal/invocation"
	"embulkshim/internal/observability"
)

type App struct {
	Config  *config.Config
	Logger  *observability.Logger
	Runner  *engine.Runner
	History invocation.HistoryStore
	Handler *invocation.Handler

	closers []io.Closer
}

// New wires logger, runner, optional history and handler. Log lines go to
// logOut; the Embulk process writes straight to this process's stdout and
// stderr.
func New(cfg *config.Config, logOut io.Writer) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logOut == nil {
		logOut = os.Stdout
	}

	logger, logCloser, err := observability.New(logOut, observability.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, closers: []io.Closer{logCloser}}

	if cfg.HistoryDB != "" {
		store, err := invocation.NewSQLiteHistoryStore(cfg.HistoryDB, cfg.HistoryKeep)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("init history store failed: %w", err)
		}
		a.History = store
		a.closers = append(a.closers, store)
	}

	a.Runner = engine.NewRunner()
	a.Runner.Env = cfg.EngineEnv

	a.Handler = invocation.NewHandler(a.Runner, logger, a.History)

	if cfg.EnvFileUsed != "" {
		logger.Debug("env file loaded", "path", cfg.EnvFileUsed, "entries", len(cfg.EngineEnv))
	}
	return a, nil
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
