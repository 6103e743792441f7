// Package clientcmd implements the genv client command line.
package clientcmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sajjad-MoBe/genv/client"
	"github.com/sajjad-MoBe/genv/internal/localconfig"
	"github.com/sajjad-MoBe/genv/internal/shared"
)

// Options configures the command tree
type Options struct {
	// Home holds .genv.conf, .genv and .bashrc
	Home    string
	Out     io.Writer
	Err     io.Writer
	Timeout time.Duration
}

type app struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewRootCommand builds the genv command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Timeout == 0 {
		opts.Timeout = client.DefaultConfig().Timeout
	}

	logger, err := shared.NewLogger("warn", shared.FormatText, opts.Err)
	if err != nil {
		logger = shared.DiscardLogger()
	}
	a := &app{opts: opts, logger: logger}

	rootCmd := &cobra.Command{
		Use:   "genv",
		Short: "Share environment variables through a genv server",
		Long: `genv stores named variables on a genv server and pulls the full set
into ~/.genv, which ~/.bashrc sources.`,
	}
	rootCmd.SetOut(opts.Out)
	rootCmd.SetErr(opts.Err)

	rootCmd.AddCommand(
		a.configCmd(),
		a.getCmd(),
		a.setCmd(),
		a.updateCmd(),
		a.allCmd(),
	)
	return rootCmd
}

// Execute runs the client with the process arguments and returns the
// exit code
func Execute() int {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Unable to figure out the current user's home directory:", err)
		return 1
	}

	if err := NewRootCommand(Options{Home: home}).Execute(); err != nil {
		return 1
	}
	return 0
}

func (a *app) configPath() string {
	return localconfig.Path(a.opts.Home)
}

// loadConfig reads the local config, warning about a file it cannot parse
func (a *app) loadConfig() *localconfig.Config {
	cfg, err := localconfig.Load(a.configPath())
	if err != nil {
		a.logger.WithError(err).Warn("ignoring unreadable config file")
	}
	return cfg
}

// client builds an HTTP client from a complete local config
func (a *app) client() (*client.Client, error) {
	cfg := a.loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return client.NewClient(cfg.Server, cfg.Secret, client.Config{Timeout: a.opts.Timeout})
}
