package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for coldcall.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coldcall",
		Short: "Find local businesses and prepare cold call lists",
		Long: `coldcall searches Google Places for local businesses, optionally checks
their websites, and writes the results as CSV.

Configuration comes from the same environment variables as the server.
Without GOOGLE_MAPS_API_KEY or OPENAI_API_KEY the matching provider runs
in demo mode.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewCacheCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
