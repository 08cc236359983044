package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/config"
	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// app holds what every subcommand shares once the root has loaded config.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	svc      *core.RemoteService
	sess     *session.Session

	// flags
	host     string
	token    string
	logLevel string

	stderr io.Writer
}

// commandError is an error already turned into the text shown to the user.
type commandError struct {
	msg string
	err error
}

func (e *commandError) Error() string { return e.msg }
func (e *commandError) Unwrap() error { return e.err }

// fail maps a service error to its user message, using fallback for errors
// whose text is not meant for users.
func (a *app) fail(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var ce *commandError
	if errors.As(err, &ce) {
		return err
	}
	a.logger.Debug("command failed", "error", err)
	return &commandError{msg: core.UserMessage(err, fallback), err: err}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "zen",
		Short:         "Terminal client for a video download server",
		Long:          `Zen talks to a video download server: fetch metadata, download videos, manage the server queue and crawl channels for videos.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.host, "host", "", "Server base URL (overrides ZEN_HOST and settings)")
	root.PersistentFlags().StringVar(&a.token, "token", "", "Bearer token (overrides ZEN_TOKEN and settings)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newInfoCmd(a),
		newCheckCmd(a),
		newGetCmd(a),
		newQueueCmd(a),
		newDiscoverCmd(a),
		newSettingsCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newDashboardCmd(a),
	)
	return root
}

// init loads settings (file, .env, environment, then flags) and builds the
// shared service and session.
func (a *app) init() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if host := strings.TrimSpace(a.host); host != "" {
		settings.Server.Host = host
	}
	if token := strings.TrimSpace(a.token); token != "" {
		settings.Server.Token = token
	}
	if a.logLevel != "" {
		settings.Logging.Level = a.logLevel
	}
	a.settings = settings

	a.logger = config.SetupLogger(settings.Logging, a.stderr)

	logsDir := config.GetLogsDir()
	if removed, err := utils.CleanupLogs(logsDir, settings.Logging.LogRetentionCount); err != nil {
		a.logger.Debug("log cleanup failed", "dir", logsDir, "error", err)
	} else if removed > 0 {
		a.logger.Debug("removed old debug logs", "count", removed)
	}

	a.svc = a.newService()
	a.sess = session.New()
	return nil
}

func (a *app) newService() *core.RemoteService {
	return core.NewRemoteService(a.settings.Server.Host, a.settings.Server.Token,
		core.WithRequestTimeout(a.settings.Server.RequestTimeout),
		core.WithInfoTimeout(a.settings.Server.InfoTimeout),
		core.WithLogger(a.logger),
	)
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := ExecuteContext(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ExecuteContext runs the command tree with args.
func ExecuteContext(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
