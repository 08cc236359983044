package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/config"
	"github.com/zen-downloader/zen/internal/download"
	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/history"
	"github.com/zen-downloader/zen/internal/utils"
)

// DefaultProgressChannelBuffer sizes the event channel of a single download.
const DefaultProgressChannelBuffer = 100

func newGetCmd(a *app) *cobra.Command {
	var (
		format       string
		audioOnly    bool
		serverPath   string
		outputDir    string
		playlist     bool
		useClipboard bool
		noHistory    bool
	)

	cmd := &cobra.Command{
		Use:   "get [url]",
		Short: "Download a video now and save it locally",
		Long:  `get asks the server to download a video, follows its progress and saves the finished file to the output directory.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveURLArg(args, useClipboard || a.settings.General.ClipboardFallback)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("format") {
				format = a.settings.General.DefaultFormat
			}
			if !cmd.Flags().Changed("audio") {
				audioOnly = a.settings.General.AudioOnly
			}
			if outputDir == "" {
				outputDir = a.settings.General.DefaultDownloadDir
			}

			req := types.DownloadRequest{
				URL:          url,
				FormatID:     format,
				AudioOnly:    audioOnly,
				DownloadPath: serverPath,
				PlaylistMode: playlist,
			}

			progressCh := make(chan any, DefaultProgressChannelBuffer)
			opts := []download.Option{
				download.WithEvents(progressCh),
				download.WithLogger(a.logger),
			}
			if !noHistory {
				if store, err := history.Open(config.GetHistoryPath()); err != nil {
					a.logger.Warn("history unavailable", "error", err)
				} else {
					defer func() { _ = store.Close() }()
					opts = append(opts, download.WithRecorder(store))
				}
			}
			ctrl := download.NewController(a.svc, a.sess, &download.FileSaver{Dir: outputDir}, opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			done := make(chan struct{})
			go func() {
				defer close(done)
				printProgress(cmd.ErrOrStderr(), progressCh)
			}()

			out, err := ctrl.Run(ctx, req)
			close(progressCh)
			<-done

			if err != nil {
				if ctx.Err() != nil {
					// interrupted: drop the server task as well
					ctrl.Reset(context.WithoutCancel(ctx))
				}
				return a.fail(err, "Download failed")
			}
			return printOutcome(cmd.OutOrStdout(), cmd.ErrOrStderr(), out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "best", "Format id to request")
	cmd.Flags().BoolVar(&audioOnly, "audio", false, "Request audio only")
	cmd.Flags().StringVarP(&serverPath, "path", "p", "", "Download folder on the server")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Local directory for the saved file")
	cmd.Flags().BoolVar(&playlist, "playlist", false, "Download the whole playlist on the server")
	cmd.Flags().BoolVar(&useClipboard, "clipboard", false, "Read the URL from the clipboard")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the download in history")
	return cmd
}

// printProgress renders progress events as a single updating line.
func printProgress(w io.Writer, ch <-chan any) {
	var last string
	for msg := range ch {
		switch m := msg.(type) {
		case events.ProgressMsg:
			line := fmt.Sprintf("%-14s %5.1f%%", m.Status, m.Progress)
			if m.Speed != "" {
				line += "  " + m.Speed
			}
			if m.TotalVideos > 0 {
				line += fmt.Sprintf("  video %d/%d", m.CurrentVideo, m.TotalVideos)
			}
			if line != last {
				fmt.Fprintf(w, "\r%-60s", line)
				last = line
			}
		case events.DownloadCompleteMsg:
			fmt.Fprintf(w, "\r%-60s\n", "completed, retrieving file...")
		case events.DownloadErrorMsg:
			if last != "" {
				fmt.Fprintln(w)
			}
		}
	}
}

func printOutcome(stdout, stderr io.Writer, out *download.Outcome) error {
	switch {
	case out.Playlist:
		fmt.Fprintln(stdout, out.Notice)
	case out.SoftFailure != nil:
		// the server finished; only local retrieval failed
		fmt.Fprintf(stderr, "Warning: %v\n", out.SoftFailure)
	default:
		fmt.Fprintf(stdout, "Saved %s (%s)\n", out.Path, utils.FormatSize(out.Size))
	}
	return nil
}
