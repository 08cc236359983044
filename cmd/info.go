package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/utils"
	"github.com/zen-downloader/zen/internal/validation"
)

func newInfoCmd(a *app) *cobra.Command {
	var useClipboard bool

	cmd := &cobra.Command{
		Use:   "info [url]",
		Short: "Show metadata and formats of a video or playlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveURLArg(args, useClipboard || a.settings.General.ClipboardFallback)
			if err != nil {
				return err
			}
			if err := validation.MediaURL(url); err != nil {
				return err
			}

			info, err := a.svc.Info(cmd.Context(), url)
			if err != nil {
				return a.fail(err, "Failed to fetch video info")
			}
			printMediaInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useClipboard, "clipboard", false, "Read the URL from the clipboard")
	return cmd
}

func printMediaInfo(w io.Writer, info *types.MediaInfo) {
	if info.IsPlaylist() {
		fmt.Fprintf(w, "Playlist: %s (%d videos)\n\n", info.Title, len(info.Videos))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tTITLE\tDURATION")
		for i, v := range info.Videos {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, v.Title, v.Duration)
		}
		_ = tw.Flush()
		return
	}

	fmt.Fprintf(w, "Title:    %s\n", info.Title)
	if info.Uploader != "" {
		fmt.Fprintf(w, "Uploader: %s\n", info.Uploader)
	}
	if info.Duration != "" {
		fmt.Fprintf(w, "Duration: %s\n", info.Duration)
	}
	if info.ViewCount > 0 {
		fmt.Fprintf(w, "Views:    %s\n", utils.FormatCount(info.ViewCount))
	}

	formats := info.UniqueFormats()
	if len(formats) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tQUALITY\tSIZE\tCODECS")
	for _, f := range formats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%s\n", f.FormatID, f.Label(), utils.FormatSize(f.Filesize), f.VCodec, f.ACodec)
	}
	_ = tw.Flush()
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the server's download tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.svc.Check(cmd.Context())
			if err != nil {
				return a.fail(err, "Failed to reach the server")
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "server:  %s\n", a.settings.Server.Host)
			fmt.Fprintf(w, "yt-dlp:  %s\n", installed(status.YtDlp))
			fmt.Fprintf(w, "ffmpeg:  %s\n", installed(status.FFmpeg))
			if status.Message != "" {
				fmt.Fprintln(w, status.Message)
			}
			if !status.YtDlp {
				return errors.New("yt-dlp is missing on the server")
			}
			return nil
		},
	}
}

func installed(ok bool) string {
	if ok {
		return "installed"
	}
	return "missing"
}
