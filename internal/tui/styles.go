package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Colors
	ColorNeonPurple = lipgloss.Color("#bd93f9") // Dracula Purple
	ColorNeonPink   = lipgloss.Color("#ff79c6") // Dracula Pink
	ColorNeonCyan   = lipgloss.Color("#8be9fd") // Dracula Cyan
	ColorGray       = lipgloss.Color("#44475a") // Dracula Selection
	ColorLightGray  = lipgloss.Color("#6272a4") // Dracula Comment
	ColorText       = lipgloss.Color("#f8f8f2") // Dracula Foreground

	ColorStateDownloading = lipgloss.Color("#50fa7b")
	ColorStateDone        = lipgloss.Color("#8be9fd")
	ColorStatePending     = lipgloss.Color("#ffb86c")
	ColorStateError       = lipgloss.Color("#ff5555")

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPurple).
			Bold(true)

	StatsStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(DefaultPaddingY, DefaultPaddingX)

	StatsLabelStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Width(11)

	StatsValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	NotificationStyle = lipgloss.NewStyle().
				Foreground(ColorNeonCyan).
				Bold(true)

	ErrorNotificationStyle = lipgloss.NewStyle().
				Foreground(ColorStateError).
				Bold(true)
)

// ConfigureColor selects the color profile for out. NO_COLOR forces plain text.
func ConfigureColor(out io.Writer) {
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
}
