// Package servercmd implements the genv-server command line.
package servercmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sajjad-MoBe/genv/internal/config"
	"github.com/sajjad-MoBe/genv/internal/shared"
)

// NewRootCommand builds the genv-server command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "genv-server",
		Short: "Serve a shared table of environment variables",
		Long: `genv-server keeps named string variables in memory, persists every
change to a snapshot before acknowledging it and serves them over HTTP to
clients holding the shared secret.`,
	}
	rootCmd.AddCommand(newStartCommand())
	return rootCmd
}

// Execute runs the server with the process arguments and returns the
// exit code
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

func newStartCommand() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the genv server",
		Args:  cobra.NoArgs,
		RunE:  runStart,
	}
	config.RegisterFlags(startCmd.Flags())
	return startCmd
}

func runStart(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		logrus.New().WithError(err).Error("unable to start")
		return err
	}

	logger, err := shared.NewLogger(cfg.LogLevel, shared.LogFormat(cfg.LogFormat), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("unable to start")
		return err
	}

	if err := app.Listen(); err != nil {
		logger.WithError(err).Error("unable to start")
		return err
	}
	logger.WithFields(logrus.Fields{
		"addr":      app.Addr().String(),
		"backend":   cfg.Backend,
		"variables": app.table.Len(),
	}).Info("genv server started")

	if err := app.Serve(ctx); err != nil {
		logger.WithError(err).Error("server stopped with error")
		return err
	}
	logger.Info("genv server stopped")
	return nil
}
