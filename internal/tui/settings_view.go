package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zen-downloader/zen/internal/engine/types"
)

// settingRow describes one editable server setting.
type settingRow struct {
	Key         string
	Label       string
	Description string
}

var serverSettingRows = []settingRow{
	{Key: "download_path", Label: "Download Path", Description: "Folder on the server where finished downloads are kept."},
	{Key: "concurrent_downloads", Label: "Concurrent Downloads", Description: "Queue tasks the server runs at once (1-10)."},
	{Key: "default_quality", Label: "Default Quality", Description: "Format used when a queue item does not name one."},
}

// settingValue returns the display text of a server setting.
func settingValue(s types.Settings, key string) string {
	switch key {
	case "download_path":
		return s.DownloadPath
	case "concurrent_downloads":
		return strconv.Itoa(s.ConcurrentDownloads)
	case "default_quality":
		return s.DefaultQuality
	}
	return ""
}

// viewSettings renders the Btop-style settings page
func (m RootModel) viewSettings() string {
	// Fixed smaller size for settings modal
	width := 70
	height := 14
	if m.width < width+4 {
		width = m.width - 4
	}
	if m.height < height+4 {
		height = m.height - 4
	}

	if m.serverSettings == nil {
		body := lipgloss.Place(width-4, height-4, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("Loading settings..."))
		box := renderBtopBox("Server Settings", body, width, height, ColorNeonPink, false)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	leftWidth := 24
	rightWidth := width - leftWidth - 5

	// === LEFT COLUMN: Settings List (names only) ===
	var listLines []string
	for i, row := range serverSettingRows {
		if i == m.SettingsRow {
			listLines = append(listLines, SelectedItemStyle.Render("> "+row.Label))
		} else {
			listLines = append(listLines, lipgloss.NewStyle().Foreground(ColorLightGray).Render("  "+row.Label))
		}
	}
	listBox := lipgloss.NewStyle().Width(leftWidth).Render(lipgloss.JoinVertical(lipgloss.Left, listLines...))

	separator := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.TrimSuffix(strings.Repeat("│\n", len(serverSettingRows)), "\n"))

	// === RIGHT COLUMN: Value + Description ===
	row := serverSettingRows[m.SettingsRow]
	valueStr := settingValue(*m.serverSettings, row.Key)
	if valueStr == "" {
		valueStr = "(not set)"
	}
	if m.SettingsEditing {
		valueStr = m.SettingsInput.View()
	}
	valueDisplay := lipgloss.NewStyle().
		Foreground(ColorNeonCyan).
		Bold(true).
		Render("Value: " + valueStr)
	descDisplay := lipgloss.NewStyle().
		Foreground(ColorLightGray).
		Width(rightWidth - 2).
		Render(row.Description)

	rightBox := lipgloss.NewStyle().
		Width(rightWidth).
		PaddingLeft(1).
		Render(valueDisplay + "\n\n" + descDisplay)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listBox, separator, rightBox)

	fullContent := lipgloss.JoinVertical(lipgloss.Left,
		"",
		content,
		"",
		m.help.View(SettingsKeys),
	)

	box := renderBtopBox("Server Settings", fullContent, width, height, ColorNeonPink, false)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
