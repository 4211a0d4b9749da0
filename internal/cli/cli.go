// Package cli holds what every kanban subcommand shares: the resolved
// configuration, the REST client and the output formatter.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/logging"
)

// Env is built once by the root command and handed to every subcommand
// constructor. Config is loaded lazily so --config is honored.
type Env struct {
	ConfigPath string
	JSON       bool
	Quiet      bool

	// Out and ErrOut default to stdout and stderr
	Out    io.Writer
	ErrOut io.Writer

	cfg    *config.Config
	client *apiclient.Client
	log    *logrus.Logger
}

// Config loads the configuration on first use
func (e *Env) Config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	e.cfg = cfg
	return cfg, nil
}

// SetConfig replaces the configuration, used by tests and by commands that
// already hold one
func (e *Env) SetConfig(cfg *config.Config) {
	e.cfg = cfg
	e.client = nil
}

// Client returns a REST client for the configured server
func (e *Env) Client() (*apiclient.Client, error) {
	if e.client != nil {
		return e.client, nil
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	e.client = apiclient.New(cfg.Client.ServerURL, cfg.Client.Token, cfg.Client.Timeout)
	return e.client, nil
}

// Logger returns the logger configured for client commands. Unless a log
// file is configured it only reports warnings, so it does not drown out
// command output.
func (e *Env) Logger() *logrus.Logger {
	if e.log != nil {
		return e.log
	}
	log := logrus.New()
	log.SetOutput(e.errOut())
	log.SetLevel(logrus.WarnLevel)
	if cfg, err := e.Config(); err == nil && cfg.Logging.File != "" {
		if l, _, err := logging.New(logging.Options{
			Level:      cfg.Logging.Level,
			File:       cfg.Logging.File,
			JSON:       cfg.Logging.JSON,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}); err == nil {
			log = l
		}
	}
	e.log = log
	return log
}

// Formatter returns an output formatter honoring --json and --quiet
func (e *Env) Formatter() *OutputFormatter {
	return &OutputFormatter{JSON: e.JSON, Quiet: e.Quiet, Out: e.out(), ErrOut: e.errOut()}
}

// Bind points the env's writers at the command's, so tests can capture them
func (e *Env) Bind(cmd *cobra.Command) {
	if e.Out == nil {
		e.Out = cmd.OutOrStdout()
	}
	if e.ErrOut == nil {
		e.ErrOut = cmd.ErrOrStderr()
	}
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

func (e *Env) errOut() io.Writer {
	if e.ErrOut == nil {
		return os.Stderr
	}
	return e.ErrOut
}
