package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whatbot/flowedit/pkg/flowedit/session"
)

var compileCmd = &cobra.Command{
	Use:   "compile <flow-id>",
	Short: "Compact a flow into the runtime format and print it",
	Long:  `Compile fetches a flow, merges its trigger into a start node, and prints the runtime JSON a bot engine consumes.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCompile(cmd, args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, flowID string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	settings.OfflineFallback = false

	s := session.FromSettings(settings, session.Options{})
	defer s.Close()

	ctx := cmd.Context()
	if err := s.Open(ctx, flowID, ""); err != nil {
		return err
	}

	flow, err := s.Compile(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(flow)
}
