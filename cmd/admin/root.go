package main

import (
	"github.com/spf13/cobra"

	"finitefield.org/tutor-admin/internal/admin/config"
)

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:   "admin",
		Short: "Tutor admin console",
		Long: `Serves the tutor admin console.

Configuration is read from ADMIN_* environment variables, optionally seeded
from a dotenv file. Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with ADMIN_* overrides (empty to skip)")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newDetectModeCmd())
	return root
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(config.WithEnvFile(o.envFile))
}
