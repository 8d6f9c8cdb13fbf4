package main

import (
	"os"

	"github.com/spf13/cobra"
)

// signals is populated by main before command execution so that no early
// termination signal is lost while the app is still wiring itself up.
var signals <-chan os.Signal

var configPath string

var rootCmd = &cobra.Command{
	Use:           "orchestrator",
	Short:         "Supervises a fleet of components with an autonomous control loop",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML configuration file (falls back to ORCH_CONFIG)")

	rootCmd.AddCommand(startCmd, stopCmd, restartCmd, statusCmd, analyzeCmd, decideCmd)
}
