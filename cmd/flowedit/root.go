package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whatbot/flowedit/pkg/flowedit/config"
)

var rootCmd = &cobra.Command{
	Use:   "flowedit",
	Short: "Flowedit is a CLI for a running flow service",
	Long:  `Flowedit lists, exports, and compiles bot flows against a flow service, and uploads media assets to a media service.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Settings file (.yaml, .yml, or .json)")
}

// loadSettings resolves editor settings from the --config file, or the
// defaults when none is given.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Settings{}, err
	}
	if path == "" {
		return config.DefaultSettings(), nil
	}
	cfg, err := config.FromFile(path)
	if err != nil {
		return config.Settings{}, err
	}
	return config.SettingsFrom(cfg), nil
}
