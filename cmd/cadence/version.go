package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cadence/rtk"
)

// Version is the kernel release. Overridden at build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("cadence %s\n", Version)
		fmt.Printf("default time base: %s (%.0f ticks/s)\n",
			rtk.TimeBase20Ms.Period(), rtk.TimeBase20Ms.PerSecond())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
