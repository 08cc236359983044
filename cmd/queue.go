package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/queue"
)

// queueClient builds the queue client from settings. Snapshots are sent to
// ch when it is not nil.
func (a *app) queueClient(ch chan<- any) *queue.Client {
	opts := []queue.Option{
		queue.WithLogger(a.logger),
		queue.WithPollInterval(a.settings.Queue.PollInterval),
		queue.WithSettleDelay(a.settings.Queue.SettleDelay),
	}
	if ch != nil {
		opts = append(opts, queue.WithEvents(ch))
	}
	return queue.NewClient(a.svc, a.sess, opts...)
}

// itemDefaults returns a queue item carrying the configured defaults.
func (a *app) itemDefaults() types.QueueItem {
	return types.QueueItem{
		FormatID:  a.settings.General.DefaultFormat,
		AudioOnly: a.settings.General.AudioOnly,
	}
}

func newQueueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the server download queue",
	}
	cmd.AddCommand(
		newQueueListCmd(a),
		newQueueAddCmd(a),
		newQueueStartCmd(a),
		newQueueWatchCmd(a),
		newQueueRemoveCmd(a),
		newQueueClearCmd(a),
		newQueueRetryCmd(a),
		newQueueDiscardCmd(a),
	)
	return cmd
}

func newQueueListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.queueClient(nil).Reload(cmd.Context())
			if err != nil {
				return a.fail(err, "Failed to load queue")
			}
			printSnapshot(cmd.OutOrStdout(), *snap)
			return nil
		},
	}
}

func newQueueAddCmd(a *app) *cobra.Command {
	var (
		format       string
		audioOnly    bool
		serverPath   string
		title        string
		batchFile    string
		useClipboard bool
	)

	cmd := &cobra.Command{
		Use:   "add [url]...",
		Short: "Add one or more URLs to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if batchFile != "" {
				fileURLs, err := readURLsFromFile(batchFile)
				if err != nil {
					return err
				}
				urls = append(urls, fileURLs...)
			}
			if len(urls) == 0 {
				url, err := resolveURLArg(nil, useClipboard || a.settings.General.ClipboardFallback)
				if err != nil {
					return err
				}
				urls = []string{url}
			}

			item := a.itemDefaults()
			if cmd.Flags().Changed("format") {
				item.FormatID = format
			}
			if cmd.Flags().Changed("audio") {
				item.AudioOnly = audioOnly
			}
			item.DownloadPath = serverPath

			client := a.queueClient(nil)
			w := cmd.OutOrStdout()

			if len(urls) == 1 {
				item.URL = urls[0]
				item.Title = title
				id, err := client.Enqueue(cmd.Context(), item)
				if err != nil {
					return a.fail(err, "Failed to add to queue")
				}
				fmt.Fprintf(w, "Queued %s\n", id)
				return nil
			}

			items := make([]types.QueueItem, 0, len(urls))
			for _, u := range urls {
				it := item
				it.URL = u
				items = append(items, it)
			}
			return a.enqueueBatch(cmd.Context(), w, cmd.ErrOrStderr(), client, items)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "best", "Format id to request")
	cmd.Flags().BoolVar(&audioOnly, "audio", false, "Request audio only")
	cmd.Flags().StringVarP(&serverPath, "path", "p", "", "Download folder on the server")
	cmd.Flags().StringVar(&title, "title", "", "Display title of a single item")
	cmd.Flags().StringVarP(&batchFile, "batch", "b", "", "File containing URLs to queue (one per line)")
	cmd.Flags().BoolVar(&useClipboard, "clipboard", false, "Read the URL from the clipboard")
	return cmd
}

// enqueueBatch submits items and reports accepted and failed entries.
func (a *app) enqueueBatch(ctx context.Context, stdout, stderr io.Writer, client *queue.Client, items []types.QueueItem) error {
	res, err := client.EnqueueBatch(ctx, items)
	if res != nil {
		for _, f := range res.Failed {
			fmt.Fprintf(stderr, "Failed to queue %s: %s\n", f.Item.URL, a.fail(f.Err, "Failed to add to queue"))
		}
		fmt.Fprintf(stdout, "Queued %d of %d\n", len(res.IDs), len(items))
	}
	if err != nil {
		return a.fail(err, "Failed to load queue")
	}
	if res != nil && len(res.IDs) == 0 && len(items) > 0 {
		return errors.New("nothing was queued")
	}
	return nil
}

func newQueueStartCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start processing pending tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				if err := a.svc.StartQueue(cmd.Context()); err != nil {
					return a.fail(err, "Failed to start queue")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue started")
				return nil
			}
			return a.watchQueue(cmd, true)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the queue until every task is done")
	return cmd
}

func newQueueWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the queue until every task is done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watchQueue(cmd, false)
		},
	}
}

// watchQueue polls the queue, printing every snapshot, until all tasks are
// terminal or the user interrupts.
func (a *app) watchQueue(cmd *cobra.Command, start bool) error {
	lock, err := AcquireLock()
	if err != nil {
		return err
	}
	defer func() { _ = ReleaseLock(lock) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ch := make(chan any, DefaultProgressChannelBuffer)
	client := a.queueClient(ch)

	var poller *queue.Poller
	if start {
		poller, err = client.StartProcessing(ctx)
		if err != nil {
			return a.fail(err, "Failed to start queue")
		}
	} else {
		poller = client.Watch(ctx)
	}
	defer client.StopProcessing()

	w := cmd.OutOrStdout()
	for {
		select {
		case msg := <-ch:
			if snap, ok := msg.(events.QueueSnapshotMsg); ok {
				printSnapshot(w, snap.Snapshot)
			}
		case <-poller.Done():
			if ctx.Err() != nil {
				return nil
			}
			// drain the final snapshot
			for {
				select {
				case msg := <-ch:
					if snap, ok := msg.(events.QueueSnapshotMsg); ok {
						printSnapshot(w, snap.Snapshot)
					}
				default:
					fmt.Fprintln(w, "All tasks finished")
					return nil
				}
			}
		}
	}
}

// withTask resolves an id prefix against a fresh snapshot and runs fn.
func (a *app) withTask(ctx context.Context, client *queue.Client, partial string, fn func(id string) error) error {
	snap, err := client.Reload(ctx)
	if err != nil {
		return a.fail(err, "Failed to load queue")
	}
	id, err := resolveTaskID(partial, *snap)
	if err != nil {
		return err
	}
	return fn(id)
}

func newQueueRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a task from the queue",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.queueClient(nil)
			return a.withTask(cmd.Context(), client, args[0], func(id string) error {
				if err := client.Remove(cmd.Context(), id); err != nil {
					return a.fail(err, "Failed to remove task")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed tasks from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.queueClient(nil).ClearCompleted(cmd.Context()); err != nil {
				return a.fail(err, "Failed to clear queue")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared completed tasks")
			return nil
		},
	}
}

func newQueueRetryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Resubmit a failed task with its original parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.queueClient(nil)
			return a.withTask(cmd.Context(), client, args[0], func(id string) error {
				newID, err := client.Retry(cmd.Context(), id)
				if errors.Is(err, queue.ErrRetryUnknown) {
					return err
				}
				if newID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Retrying %s as %s\n", id, newID)
				}
				if err != nil {
					return a.fail(err, "Retry failed")
				}
				return nil
			})
		},
	}
}

func newQueueDiscardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <task-id>",
		Short: "Drop a failed task without retrying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.queueClient(nil)
			return a.withTask(cmd.Context(), client, args[0], func(id string) error {
				if err := client.Discard(cmd.Context(), id); err != nil {
					return a.fail(err, "Failed to discard task")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discarded %s\n", id)
				return nil
			})
		},
	}
}

func printSnapshot(w io.Writer, snap types.QueueSnapshot) {
	fmt.Fprintf(w, "Total %d  Pending %d  Downloading %d  Completed %d\n",
		snap.Total, snap.Pending, snap.Downloading, snap.Completed)
	if len(snap.Queue) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, t := range snap.Queue {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, statusLabel(t), taskLabel(t))
	}
	_ = tw.Flush()
}
