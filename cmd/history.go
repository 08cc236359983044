package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/config"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/history"
	"github.com/zen-downloader/zen/internal/utils"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		url   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List files saved on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(config.GetHistoryPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var entries []types.HistoryEntry
			if url != "" {
				entries, err = store.FindByURL(cmd.Context(), url)
			} else {
				entries, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No downloads recorded")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSAVED\tSIZE\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, utils.FormatAgo(e.SavedAt), utils.FormatSize(e.Size), e.Path)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().StringVar(&url, "url", "", "Only show downloads of this URL")
	cmd.AddCommand(newHistoryRemoveCmd())
	return cmd
}

func newHistoryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Forget a history entry; the file is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}
			store, err := history.Open(config.GetHistoryPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed entry %d\n", id)
			return nil
		},
	}
}
