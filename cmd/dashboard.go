package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/config"
	"github.com/zen-downloader/zen/internal/settings"
	"github.com/zen-downloader/zen/internal/tui"
	"github.com/zen-downloader/zen/internal/utils"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the interactive queue dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lock, err := AcquireLock()
			if err != nil {
				return err
			}
			defer func() { _ = ReleaseLock(lock) }()

			// The TUI owns the terminal: log to the debug file instead.
			utils.ConfigureDebug(config.GetLogsDir())
			utils.Debug("dashboard starting, host %s", a.settings.Server.Host)
			var logOut io.Writer = io.Discard
			if f := utils.DebugWriter(); f != nil {
				logOut = f
			}
			a.logger = config.SetupLogger(a.settings.Logging, logOut)
			a.svc = a.newService()

			tui.ConfigureColor(os.Stdout)
			switch a.settings.General.Theme {
			case config.ThemeLight:
				lipgloss.SetHasDarkBackground(false)
			case config.ThemeDark:
				lipgloss.SetHasDarkBackground(true)
			}

			ch := make(chan any, tui.EventChannelBuffer)
			return tui.Run(cmd.Context(), tui.Deps{
				Queue:    a.queueClient(ch),
				Settings: settings.NewStore(a.svc, a.sess),
				Session:  a.sess,
				Events:   ch,
				Defaults: a.itemDefaults(),
			})
		},
	}
}
