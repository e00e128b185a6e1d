package root

import (
	"context"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the worklane operator CLI. Subcommands (auth, bootstrap, tenant) are attached here.
var rootCmd = &cobra.Command{
	Use:           "worklane",
	Short:         "Worklane operator CLI",
	Long:          "Operator utilities for Worklane (schema bootstrap, super admins, tenant status, dev tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
