package main

import (
	"io"

	"github.com/spf13/cobra"

	"basespace-dl/internal/ledger"
)

func newHistoryCmd(a *app) *cobra.Command {
	var filter ledger.ListFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded downloads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openLedger()
			if err != nil {
				return err
			}
			defer st.Close()

			downloads, err := st.ListDownloads(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.formatter, downloads, func(w io.Writer) error {
				return writeDownloads(w, downloads)
			})
		},
	}

	cmd.Flags().StringVar(&filter.ProjectName, "project", "", "only downloads of this project")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "only downloads of this run id")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of records (default 50)")
	return cmd
}
