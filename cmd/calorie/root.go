package main

import (
	"os"

	"github.com/spf13/cobra"

	"calorie/internal/cli"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "calorie",
	Short:        "Daily calorie counter",
	Long:         "Track meals and exercise against a daily calorie budget, in the browser or the terminal.",
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		cli.LoadEnvFile()
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (default $XDG_CONFIG_HOME/calorie/config.toml)")
}
