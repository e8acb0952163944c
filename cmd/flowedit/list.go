package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/whatbot/flowedit/pkg/flowedit/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the flows the service knows about",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(cmd); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	st := store.NewHTTPStore(settings.APIBaseURL, nil)
	defer st.Close()

	summaries, err := st.List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tNODES\tMODIFIED\tNAME")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.Status, s.NodeCount, s.LastModified.Format("2006-01-02 15:04"), s.Name)
	}
	return w.Flush()
}
