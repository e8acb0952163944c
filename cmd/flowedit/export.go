package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/whatbot/flowedit/pkg/flowedit/session"
)

var exportCmd = &cobra.Command{
	Use:   "export <flow-id>",
	Short: "Download a flow as a JSON backup file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExport(cmd, args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	exportCmd.Flags().String("out", "", "Output file (defaults to <name>-flow-<date>.json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, flowID string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// A dead service should fail the command, not silently export a
	// cached or seeded graph.
	settings.OfflineFallback = false

	s := session.FromSettings(settings, session.Options{})
	defer s.Close()

	ctx := cmd.Context()
	if err := s.Open(ctx, flowID, ""); err != nil {
		return err
	}

	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	if out == "" {
		out = session.ExportFileName(s.BotName(), time.Now())
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := s.ExportTo(ctx, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Println("wrote", out)
	return nil
}
