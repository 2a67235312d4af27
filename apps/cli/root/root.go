package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Gunder admin CLI. Subcommands (auth, bootstrap, etc.) are attached here.
var rootCmd = &cobra.Command{
	Use:           "gunder",
	Short:         "Gunder ATS admin CLI",
	Long:          "Administrative utilities for Gunder ATS (dev tokens, schema bootstrap, company seeding).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
