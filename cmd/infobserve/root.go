package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "infobserve",
	Short: "infobserve processes captured events against YARA rules",
	Long: `infobserve feeds event envelopes from a Redis-backed queue through a
pool of YARA matchers and persists every matched event to PostgreSQL.`,
	RunE: runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
