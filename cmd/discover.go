package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/discovery"
	"github.com/zen-downloader/zen/internal/engine/events"
)

func newDiscoverCmd(a *app) *cobra.Command {
	var (
		maxVideos    int
		exclude      string
		enqueue      bool
		format       string
		audioOnly    bool
		serverPath   string
		useClipboard bool
	)

	cmd := &cobra.Command{
		Use:   "discover [url]",
		Short: "List the videos of a channel or playlist",
		Long: `discover crawls a channel or playlist on the server and prints every video as it is found.
With --enqueue the found videos, minus the --exclude indexes, are added to the queue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveURLArg(args, useClipboard || a.settings.General.ClipboardFallback)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max") {
				maxVideos = a.settings.Queue.DiscoveryMaxVideos
			}
			var excluded []int
			if exclude != "" {
				if excluded, err = parseIndexList(exclude); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ch := make(chan any, DefaultProgressChannelBuffer)
			reader := discovery.NewReader(a.svc, a.sess,
				discovery.WithEvents(ch),
				discovery.WithLogger(a.logger),
			)

			done := make(chan struct{})
			go func() {
				defer close(done)
				printDiscovered(cmd.OutOrStdout(), ch)
			}()

			result, err := reader.Run(ctx, url, maxVideos)
			close(ch)
			<-done

			if err != nil {
				if ctx.Err() != nil && len(result.Videos) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted after %d videos\n", len(result.Videos))
				}
				if errors.Is(err, discovery.ErrSuperseded) {
					return err
				}
				return a.fail(err, events.DefaultDiscoveryError)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d videos\n", len(result.Videos))

			if !enqueue || len(result.Videos) == 0 {
				return nil
			}

			sel := discovery.NewSelection(result.Videos)
			for _, i := range excluded {
				if sel.IsSelected(i) {
					sel.Toggle(i)
				}
			}
			if sel.Count() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected")
				return nil
			}

			defaults := a.itemDefaults()
			if cmd.Flags().Changed("format") {
				defaults.FormatID = format
			}
			if cmd.Flags().Changed("audio") {
				defaults.AudioOnly = audioOnly
			}
			defaults.DownloadPath = serverPath

			return a.enqueueBatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(),
				a.queueClient(nil), sel.Items(defaults))
		},
	}

	cmd.Flags().IntVarP(&maxVideos, "max", "m", discovery.DefaultMaxVideos, fmt.Sprintf("Maximum videos to find (1-%d)", discovery.MaxVideosLimit))
	cmd.Flags().StringVarP(&exclude, "exclude", "x", "", "Indexes to leave out when queueing, e.g. 2,5-7")
	cmd.Flags().BoolVarP(&enqueue, "enqueue", "q", false, "Add the found videos to the queue")
	cmd.Flags().StringVarP(&format, "format", "f", "best", "Format id for queued videos")
	cmd.Flags().BoolVar(&audioOnly, "audio", false, "Queue audio only")
	cmd.Flags().StringVarP(&serverPath, "path", "p", "", "Download folder on the server")
	cmd.Flags().BoolVar(&useClipboard, "clipboard", false, "Read the URL from the clipboard")
	return cmd
}

func printDiscovered(w io.Writer, ch <-chan any) {
	for msg := range ch {
		if m, ok := msg.(events.DiscoveryVideoMsg); ok {
			title := m.Video.Title
			if title == "" {
				title = m.Video.URL
			}
			if m.Video.Duration != "" {
				title += " [" + m.Video.Duration + "]"
			}
			fmt.Fprintf(w, "%3d. %s\n", m.Count, title)
		}
	}
}
