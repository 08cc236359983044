package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/settings"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the server preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showServerSettings(cmd, a)
		},
	}
	cmd.AddCommand(newSettingsShowCmd(a), newSettingsSetCmd(a))
	return cmd
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the server preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showServerSettings(cmd, a)
		},
	}
}

func showServerSettings(cmd *cobra.Command, a *app) error {
	s, err := settings.NewStore(a.svc, a.sess).Load(cmd.Context())
	if err != nil {
		return a.fail(err, "Failed to load settings")
	}
	printServerSettings(cmd.OutOrStdout(), s)
	return nil
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var (
		concurrent int
		quality    string
		path       string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change server preferences; only the given flags are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update types.SettingsUpdate
			if cmd.Flags().Changed("concurrent") {
				update.ConcurrentDownloads = &concurrent
			}
			if cmd.Flags().Changed("quality") {
				update.DefaultQuality = &quality
			}
			if cmd.Flags().Changed("path") {
				update.DownloadPath = &path
			}

			s, err := settings.NewStore(a.svc, a.sess).Save(cmd.Context(), update)
			if errors.Is(err, settings.ErrNothingToSave) {
				return errors.New("nothing to update: pass --concurrent, --quality or --path")
			}
			if err != nil {
				return a.fail(err, "Failed to save settings")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
			printServerSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrent, "concurrent", "c", 0, "Concurrent queue downloads (1-10)")
	cmd.Flags().StringVar(&quality, "quality", "", "Default quality")
	cmd.Flags().StringVar(&path, "path", "", "Download folder on the server")
	return cmd
}

func printServerSettings(w io.Writer, s types.Settings) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "download_path\t%s\n", s.DownloadPath)
	if s.AppDownloadPath != "" {
		fmt.Fprintf(tw, "app_download_path\t%s\n", s.AppDownloadPath)
	}
	fmt.Fprintf(tw, "concurrent_downloads\t%d\n", s.ConcurrentDownloads)
	fmt.Fprintf(tw, "default_quality\t%s\n", s.DefaultQuality)
	_ = tw.Flush()
}
