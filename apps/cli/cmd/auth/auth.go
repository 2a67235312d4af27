package auth

import (
	"github.com/spf13/cobra"
)

// Command groups auth helpers for local development.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Auth helpers (dev tokens)",
	}

	cmd.AddCommand(devTokenCommand())
	return cmd
}
