package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teamgrid",
	Short: "Teamgrid collaboration server",
	Long: `Teamgrid is the realtime collaboration server: room presence,
chat fanout and notification delivery for the team workspace.

Use "teamgrid [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
