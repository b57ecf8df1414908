package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Global flags.
var (
	configDir   string
	environment string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audition-api",
		Short: "Posts API in front of an upstream JSON placeholder service",
		Long: `audition-api serves posts and comments read from an upstream REST API.
Every request is traced, logged and measured; upstream failures are
returned as RFC 7807 problem documents.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding base.yaml and <environment>.yaml (default: $CONFIG_DIR or ./config)")
	cmd.PersistentFlags().StringVar(&environment, "env", "", "deployment environment (default: $ENVIRONMENT or development)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	// Running the binary without a subcommand starts the server.
	cmd.RunE = newServeCmd().RunE

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "audition-api version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Git SHA:    %s\n", gitSHA)
			fmt.Fprintf(cmd.OutOrStdout(), "  Build Time: %s\n", buildTime)
		},
	}
}
