package clientcmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sajjad-MoBe/genv/internal/envfile"
)

const (
	outputEnv  = "env"
	outputJSON = "json"
	outputYAML = "yaml"
)

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "config <server|secret> <value>",
		Short:     "Set the server URL or the shared secret",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"server", "secret"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg := a.loadConfig()
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			return cfg.Save(a.configPath())
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print the value of a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			c, err := a.client()
			if err != nil {
				return err
			}
			value, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a variable on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			c, err := a.client()
			if err != nil {
				return err
			}
			return c.Set(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Write every variable to ~/.genv and source it from ~/.bashrc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			c, err := a.client()
			if err != nil {
				return err
			}
			vars, err := c.All(cmd.Context())
			if err != nil {
				return err
			}

			result, err := envfile.Update(a.opts.Home, vars)
			if err != nil {
				return err
			}
			for _, name := range result.Skipped {
				a.logger.WithField("name", name).Warn("skipping variable that is not a valid shell name")
			}
			return nil
		},
	}
}

func (a *app) allCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Print every variable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output = strings.ToLower(output)
			if output != outputEnv && output != outputJSON && output != outputYAML {
				return fmt.Errorf("unknown output format %q, use env, json or yaml", output)
			}
			cmd.SilenceUsage = true

			c, err := a.client()
			if err != nil {
				return err
			}
			vars, err := c.All(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case outputEnv:
				content, skipped := envfile.Render(vars)
				for _, name := range skipped {
					a.logger.WithField("name", name).Warn("skipping variable that is not a valid shell name")
				}
				fmt.Fprint(out, content)
			case outputYAML:
				data, err := yaml.Marshal(vars)
				if err != nil {
					return err
				}
				out.Write(data)
			default:
				data, err := json.MarshalIndent(vars, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: env, json or yaml")
	return cmd
}
