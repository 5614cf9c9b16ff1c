package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence runs periodic tasks on a tick-driven real-time kernel.",
	Long: `Cadence runs a fixed-priority periodic scheduler over a wall-clock ` +
		`tick source. The bundled demo samples a simulated accelerometer, ` +
		`filters it, and plots it on a framebuffer that can be inspected ` +
		`through the monitoring server.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
