package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lhdiff/config"
	"lhdiff/logger"

	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand: resolved settings and the
// logger installed for the run.
type app struct {
	settings   config.Settings
	configPath string
	logLevel   string
	logFile    string
	log        *logger.LimitedLogger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lhdiff",
		Short:         "Map lines between two versions of a source file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "settings file (.yaml, .toml or .json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "trace, debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(
		newDiffCmd(a),
		newCalibrateCmd(a),
		newEvalCmd(a),
		newOptimizeCmd(a),
	)
	return root
}

// setup resolves settings from the config file, LHDIFF_CONFIG and flags, in
// that order, then installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if s, err = config.FromEnv(s); err != nil {
		return err
	}
	if a.logLevel != "" {
		s.LogLevel = a.logLevel
	}
	if a.logFile != "" {
		s.LogFile = a.logFile
	}
	if err := s.Validate(); err != nil {
		return err
	}
	a.settings = s

	return a.setupLogger(cmd)
}

// setupLogger logs to the configured file when there is one, otherwise to the
// command's stderr. Caller must call close.
func (a *app) setupLogger(cmd *cobra.Command) error {
	level := logger.ParseLogLevel(a.settings.LogLevel)
	if a.settings.LogFile == "" {
		a.log = logger.NewWriterLogger(cmd.ErrOrStderr(), level)
		return nil
	}

	f, err := os.OpenFile(a.settings.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	a.log = logger.NewLimitedLogger(f, level)
	log.SetOutput(a.log)
	return nil
}

func (a *app) close() {
	if a.log != nil {
		log.SetOutput(os.Stderr)
		a.log.Close()
		a.log = nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lhdiff:", err)
		os.Exit(1)
	}
}
