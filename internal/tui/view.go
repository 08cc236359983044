package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/utils"
)

// Define the Layout Ratios
const (
	ListWidthRatio = 0.6 // List takes 60% width
)

const logoText = `
███████ ███████ ███    ██
   ███  ██      ████   ██
  ███   █████   ██ ██  ██
 ███    ██      ██  ██ ██
███████ ███████ ██   ████`

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case InputState:
		return m.viewInput()
	case SettingsState:
		return m.viewSettings()
	case DetailState:
		if t, ok := m.SelectedTask(); ok {
			box := renderBtopBox("Task "+t.ID, renderTaskDetails(t, m.progress, 76), 80, 20, ColorNeonPink, false)
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
	}

	availableHeight := m.height - 2
	availableWidth := m.width - 4

	leftWidth := int(float64(availableWidth) * ListWidthRatio)
	rightWidth := availableWidth - leftWidth - 2

	listHeight := max(availableHeight-HeaderHeight, MinListHeight)
	graphHeight := max(availableHeight/3, 9)
	detailHeight := max(availableHeight-graphHeight, MinListHeight)

	// --- HEADER (Top Left) ---
	header := lipgloss.JoinVertical(lipgloss.Left,
		LogoStyle.Render(logoText),
		StatsStyle.Render(renderStats(m.snapshot)),
	)
	headerBox := lipgloss.NewStyle().
		Width(leftWidth).
		Height(HeaderHeight).
		Padding(0, 2).
		Render(header)

	// --- QUEUE (Bottom Left) ---
	var listContent string
	switch {
	case len(m.snapshot.Queue) == 0:
		listContent = lipgloss.Place(leftWidth-8, listHeight-4, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("Queue is empty"))
	case !m.expanded:
		listContent = lipgloss.NewStyle().Foreground(ColorLightGray).
			Render(fmt.Sprintf("%d tasks hidden  [tab] expand", len(m.snapshot.Queue)))
	default:
		listContent = m.renderQueue(leftWidth-6, listHeight-4)
	}
	listBox := renderBtopBox("Queue", lipgloss.NewStyle().Padding(1, 2).Render(listContent), leftWidth, listHeight, ColorNeonPink, true)

	// --- THROUGHPUT (Top Right) ---
	graphBox := m.renderGraphBox(rightWidth, graphHeight)

	// --- DETAILS (Bottom Right) ---
	var detailContent string
	if t, ok := m.SelectedTask(); ok {
		detailContent = renderTaskDetails(t, m.progress, rightWidth-4)
	} else {
		detailContent = lipgloss.Place(rightWidth-4, detailHeight-4, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("No Task Selected"))
	}
	detailBox := renderBtopBox("Task Details", detailContent, rightWidth, detailHeight, ColorGray, true)

	leftColumn := lipgloss.JoinVertical(lipgloss.Left, headerBox, listBox)
	rightColumn := lipgloss.JoinVertical(lipgloss.Left, graphBox, detailBox)
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftColumn, rightColumn)

	// Footer - show notification if active, otherwise show keybindings
	var footer string
	if m.notification != "" {
		style := NotificationStyle
		if m.notifyErr {
			style = ErrorNotificationStyle
		}
		footer = lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, style.Render(m.notification))
	} else {
		footer = lipgloss.NewStyle().Padding(0, 1).Render(m.help.View(DashboardKeys))
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m RootModel) viewInput() string {
	labelStyle := lipgloss.NewStyle().Width(10).Foreground(ColorLightGray)

	format := m.defaults.FormatID
	if format == "" {
		format = "best"
	}
	if m.defaults.AudioOnly {
		format += " (audio only)"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render("URL:"), m.input.View()),
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render("Format:"), lipgloss.NewStyle().Foreground(ColorText).Render(format)),
		"",
		m.help.View(InputKeys),
	)

	box := renderBtopBox("Add to Queue", lipgloss.NewStyle().Padding(0, 2).Render(content), 80, 10, ColorNeonPink, false)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m RootModel) renderQueue(width, height int) string {
	if height < 1 {
		height = 1
	}

	// keep the cursor visible
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.snapshot.Queue))

	var lines []string
	for i := start; i < end; i++ {
		t := m.snapshot.Queue[i]
		name := truncateString(taskTitle(t), max(width-22, 8))
		line := fmt.Sprintf("%-*s %s", max(width-22, 8), name, renderStatus(t))
		if i == m.cursor {
			lines = append(lines, SelectedItemStyle.Render("> ")+line)
		} else {
			lines = append(lines, ItemStyle.Render("  ")+line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m RootModel) renderGraphBox(width, height int) string {
	axisWidth := 6
	graphWidth := max(width-axisWidth-5, 10)
	graphHeight := max(height-4, 1)
	scale := graphScale(m.SpeedHistory)

	axisStyle := lipgloss.NewStyle().Width(axisWidth).Foreground(ColorLightGray).Align(lipgloss.Right)
	spaces := max(graphHeight-2, 0)
	axis := lipgloss.JoinVertical(lipgloss.Right,
		axisStyle.Render(fmt.Sprintf("%.0f", scale)),
		strings.Repeat("\n", spaces),
		axisStyle.Render("0"),
	)

	graph := lipgloss.JoinHorizontal(lipgloss.Top,
		axis,
		lipgloss.NewStyle().MarginLeft(1).Render(renderMultiLineGraph(m.SpeedHistory, graphWidth, graphHeight, scale, ColorNeonPink)),
	)

	current := 0.0
	if len(m.SpeedHistory) > 0 {
		current = m.SpeedHistory[len(m.SpeedHistory)-1]
	}
	title := lipgloss.NewStyle().
		Width(width - 4).
		Align(lipgloss.Right).
		Foreground(ColorNeonPink).
		Bold(true).
		Render(fmt.Sprintf("Current: %.2f MB/s", current))

	return renderBtopBox("Throughput", lipgloss.JoinVertical(lipgloss.Left, title, "", graph), width, height, ColorNeonCyan, false)
}

func renderStats(snap types.QueueSnapshot) string {
	return fmt.Sprintf("Total %s  Pending %s  Downloading %s  Completed %s",
		utils.FormatCount(int64(snap.Total)),
		utils.FormatCount(int64(snap.Pending)),
		utils.FormatCount(int64(snap.Downloading)),
		utils.FormatCount(int64(snap.Completed)),
	)
}

// renderTaskDetails renders the detail pane of one task
func renderTaskDetails(t types.Task, bar progress.Model, w int) string {
	contentWidth := max(w-6, 10)
	bar.Width = max(contentWidth-6, 10)

	divider := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.Repeat("─", contentWidth))

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render(label), StatsValueStyle.Render(value))
	}

	info := []string{
		row("Title:", truncateString(taskTitle(t), contentWidth-12)),
		row("Status:", renderStatus(t)),
	}
	if t.Filename != "" {
		info = append(info, row("Filename:", truncateString(t.Filename, contentWidth-12)))
	}
	if t.FormatID != "" {
		format := t.FormatID
		if t.AudioOnly {
			format += " (audio)"
		}
		info = append(info, row("Format:", format))
	}

	progressSection := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true).Render("Progress"),
		"",
		lipgloss.NewStyle().MarginLeft(1).Render(bar.ViewAs(t.Progress/100)),
	)

	speed := t.Speed
	if speed == "" {
		speed = "-"
	}
	stats := []string{row("Speed:", speed)}
	if t.TotalVideos > 0 {
		stats = append(stats, row("Videos:", fmt.Sprintf("%d / %d", t.CurrentVideo, t.TotalVideos)))
	}
	if t.Error != "" {
		stats = append(stats, row("Error:", lipgloss.NewStyle().Foreground(ColorStateError).Width(contentWidth-12).Render(t.Error)))
	}

	parts := []string{"", lipgloss.JoinVertical(lipgloss.Left, info...), divider, "", progressSection, divider, "", lipgloss.JoinVertical(lipgloss.Left, stats...)}
	if t.URL != "" {
		parts = append(parts, divider, "", row("URL:", lipgloss.NewStyle().Foreground(ColorLightGray).Render(truncateString(t.URL, contentWidth-12))))
	}

	return lipgloss.NewStyle().Padding(0, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func taskTitle(t types.Task) string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Filename != "":
		return t.Filename
	case t.URL != "":
		return t.URL
	}
	return t.ID
}

func renderStatus(t types.Task) string {
	style := lipgloss.NewStyle()

	switch {
	case t.Status == types.StatusError:
		return style.Foreground(ColorStateError).Render("✖ Error")
	case t.Status == types.StatusCompleted:
		return style.Foreground(ColorStateDone).Render("✔ Completed")
	case t.Status == types.StatusPending:
		return style.Foreground(ColorStatePending).Render("o Pending")
	case t.Status == types.StatusDownloading:
		return style.Foreground(ColorStateDownloading).Render(fmt.Sprintf("⬇ %.0f%%", t.Progress))
	case t.Status.IsActive():
		return style.Foreground(ColorStateDownloading).Render("⚙ " + string(t.Status))
	default:
		return style.Foreground(ColorLightGray).Render(string(t.Status))
	}
}

func truncateString(s string, i int) string {
	runes := []rune(s)
	if i > 0 && len(runes) > i {
		return string(runes[:i]) + "..."
	}
	return s
}

// renderBtopBox creates a btop-style box with title embedded in the top border
// titleRight: if true, title appears on the right side; if false, title appears on the left
// Example (left):  ╭─ TITLE ─────────────────────────────────╮
// Example (right): ╭─────────────────────────────────── TITLE ─╮
func renderBtopBox(title string, content string, width, height int, borderColor lipgloss.Color, titleRight bool) string {
	const (
		topLeft     = "╭"
		topRight    = "╮"
		bottomLeft  = "╰"
		bottomRight = "╯"
		horizontal  = "─"
		vertical    = "│"
	)

	innerWidth := max(width-2, 1)

	titleText := fmt.Sprintf(" %s ", title)
	remainingWidth := max(innerWidth-lipgloss.Width(titleText)-1, 0)

	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)

	var topBorder string
	if titleRight {
		topBorder = border.Render(topLeft+strings.Repeat(horizontal, remainingWidth)) +
			titleStyle.Render(titleText) +
			border.Render(horizontal+topRight)
	} else {
		topBorder = border.Render(topLeft+horizontal) +
			titleStyle.Render(titleText) +
			border.Render(strings.Repeat(horizontal, remainingWidth)+topRight)
	}

	bottomBorder := border.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	contentLines := strings.Split(content, "\n")
	innerHeight := height - 2

	var wrapped []string
	for i := 0; i < innerHeight; i++ {
		line := ""
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lineWidth := lipgloss.Width(line)
		if lineWidth < innerWidth {
			line += strings.Repeat(" ", innerWidth-lineWidth)
		} else if lineWidth > innerWidth {
			line = lipgloss.NewStyle().MaxWidth(innerWidth).Render(line)
		}
		wrapped = append(wrapped, border.Render(vertical)+line+border.Render(vertical))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBorder,
		strings.Join(wrapped, "\n"),
		bottomBorder,
	)
}
