package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zen-downloader/zen/internal/core"
	"github.com/zen-downloader/zen/internal/engine/events"
	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/queue"
	"github.com/zen-downloader/zen/internal/utils"
)

// actionResultMsg reports the end of a queue action started from the dashboard
type actionResultMsg struct {
	notice   string
	err      error
	fallback string
}

// pollerStartedMsg carries a poller started by a command
type pollerStartedMsg struct {
	poller *queue.Poller
}

// pollerDoneMsg is sent once a poller exits
type pollerDoneMsg struct {
	poller *queue.Poller
}

// settingsLoadedMsg carries the server settings after a load or save
type settingsLoadedMsg struct {
	settings types.Settings
	saved    bool
	err      error
}

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case events.QueueSnapshotMsg:
		m.applySnapshot(msg.Snapshot, msg.Expanded)
		if m.poller == nil && !msg.Snapshot.AllTerminal() {
			cmds = append(cmds, m.watchCmd())
		}
		cmds = append(cmds, listenForActivity(m.events))

	case pollerStartedMsg:
		m.poller = msg.poller
		cmds = append(cmds, waitPoller(msg.poller))

	case pollerDoneMsg:
		if m.poller == msg.poller {
			m.poller = nil
		}

	case actionResultMsg:
		if msg.err != nil {
			m.notify(core.UserMessage(msg.err, msg.fallback), true)
		} else if msg.notice != "" {
			m.notify(msg.notice, false)
		}

	case settingsLoadedMsg:
		if msg.err != nil {
			m.notify(core.UserMessage(msg.err, "Failed to load settings"), true)
			break
		}
		s := msg.settings
		m.serverSettings = &s
		if msg.saved {
			m.notify("Settings saved", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case DashboardState:
			return m.updateDashboard(msg)
		case DetailState:
			if msg.String() == "esc" || msg.String() == "q" || msg.String() == "enter" {
				m.state = DashboardState
			}
			return m, nil
		case InputState:
			return m.updateInput(msg)
		case SettingsState:
			return m.updateSettings(msg)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *RootModel) applySnapshot(snap types.QueueSnapshot, expanded bool) {
	m.snapshot = snap
	m.expanded = expanded
	if m.cursor >= len(snap.Queue) {
		m.cursor = max(len(snap.Queue)-1, 0)
	}

	m.SpeedHistory = append(m.SpeedHistory, aggregateSpeed(snap))
	if len(m.SpeedHistory) > SpeedHistoryLen {
		m.SpeedHistory = m.SpeedHistory[len(m.SpeedHistory)-SpeedHistoryLen:]
	}
}

func (m *RootModel) notify(text string, isErr bool) {
	m.notification = text
	m.notifyErr = isErr
	utils.Debug("dashboard: %s", text)
}

func (m RootModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := DashboardKeys
	m.notification = ""

	switch {
	case key.Matches(msg, keys.Quit):
		m.queue.StopProcessing()
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.snapshot.Queue)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Toggle):
		m.expanded = !m.expanded
		m.sess.SetQueueExpanded(m.expanded)

	case key.Matches(msg, keys.Details):
		if _, ok := m.SelectedTask(); ok {
			m.state = DetailState
		}

	case key.Matches(msg, keys.Add):
		m.state = InputState
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, keys.Settings):
		m.state = SettingsState
		m.SettingsEditing = false
		return m, m.loadSettingsCmd()

	case key.Matches(msg, keys.Start):
		return m, m.startCmd()

	case key.Matches(msg, keys.Clear):
		return m, m.clearCmd()

	case key.Matches(msg, keys.Remove):
		if t, ok := m.SelectedTask(); ok {
			return m, m.removeCmd(t.ID)
		}

	case key.Matches(msg, keys.Retry), key.Matches(msg, keys.Discard):
		t, ok := m.SelectedTask()
		if !ok {
			break
		}
		if t.Status != types.StatusError {
			m.notify("Only failed downloads can be retried or discarded", true)
			break
		}
		if key.Matches(msg, keys.Retry) {
			return m, m.retryCmd(t.ID)
		}
		return m, m.discardCmd(t.ID)
	}

	return m, nil
}

func (m RootModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, InputKeys.Cancel):
		m.input.Blur()
		m.state = DashboardState
		return m, nil

	case key.Matches(msg, InputKeys.Submit):
		url := strings.TrimSpace(m.input.Value())
		if url == "" {
			// URL is mandatory - stay in the popup
			return m, nil
		}
		m.input.Blur()
		m.state = DashboardState
		item := m.defaults
		item.URL = url
		return m, m.enqueueCmd(item)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// Commands
// =============================================================================

func (m RootModel) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.queue.Reload(m.ctx); err != nil {
			return actionResultMsg{err: err, fallback: "Failed to load queue"}
		}
		// the snapshot itself arrives through the event channel
		return nil
	}
}

func (m RootModel) watchCmd() tea.Cmd {
	return func() tea.Msg {
		return pollerStartedMsg{poller: m.queue.Watch(m.ctx)}
	}
}

func waitPoller(p *queue.Poller) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return pollerDoneMsg{poller: p}
	}
}

func (m RootModel) enqueueCmd(item types.QueueItem) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.queue.Enqueue(m.ctx, item); err != nil {
			return actionResultMsg{err: err, fallback: "Failed to add to queue"}
		}
		return actionResultMsg{notice: "Added to queue"}
	}
}

func (m RootModel) startCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.queue.StartProcessing(m.ctx)
		if err != nil {
			return actionResultMsg{err: err, fallback: "Failed to start queue"}
		}
		return pollerStartedMsg{poller: p}
	}
}

func (m RootModel) removeCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.queue.Remove(m.ctx, id); err != nil {
			return actionResultMsg{err: err, fallback: "Failed to remove task"}
		}
		return actionResultMsg{notice: "Removed " + id}
	}
}

func (m RootModel) clearCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.queue.ClearCompleted(m.ctx); err != nil {
			return actionResultMsg{err: err, fallback: "Failed to clear queue"}
		}
		return actionResultMsg{notice: "Cleared completed downloads"}
	}
}

func (m RootModel) retryCmd(id string) tea.Cmd {
	return func() tea.Msg {
		newID, err := m.queue.Retry(m.ctx, id)
		if err != nil {
			return actionResultMsg{err: err, fallback: "Retry failed"}
		}
		return actionResultMsg{notice: fmt.Sprintf("Retrying as %s", newID)}
	}
}

func (m RootModel) discardCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.queue.Discard(m.ctx, id); err != nil {
			return actionResultMsg{err: err, fallback: "Failed to discard task"}
		}
		return actionResultMsg{notice: "Discarded " + id}
	}
}

func (m RootModel) loadSettingsCmd() tea.Cmd {
	if m.settings == nil {
		return nil
	}
	return func() tea.Msg {
		s, err := m.settings.Load(m.ctx)
		return settingsLoadedMsg{settings: s, err: err}
	}
}

func (m RootModel) saveSettingsCmd(update types.SettingsUpdate) tea.Cmd {
	return func() tea.Msg {
		s, err := m.settings.Save(m.ctx, update)
		if err != nil {
			return actionResultMsg{err: err, fallback: "Failed to save settings"}
		}
		return settingsLoadedMsg{settings: s, saved: true}
	}
}

// =============================================================================
// Settings page
// =============================================================================

func (m RootModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := SettingsKeys

	if m.SettingsEditing {
		switch {
		case msg.String() == "esc":
			m.SettingsEditing = false
			m.SettingsInput.Blur()
			return m, nil
		case key.Matches(msg, keys.Edit):
			m.SettingsEditing = false
			m.SettingsInput.Blur()
			update, err := buildSettingsUpdate(serverSettingRows[m.SettingsRow].Key, m.SettingsInput.Value())
			if err != nil {
				m.notify(err.Error(), true)
				return m, nil
			}
			return m, m.saveSettingsCmd(update)
		}
		var cmd tea.Cmd
		m.SettingsInput, cmd = m.SettingsInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Close):
		m.state = DashboardState
	case key.Matches(msg, keys.Up):
		if m.SettingsRow > 0 {
			m.SettingsRow--
		}
	case key.Matches(msg, keys.Down):
		if m.SettingsRow < len(serverSettingRows)-1 {
			m.SettingsRow++
		}
	case key.Matches(msg, keys.Reload):
		return m, m.loadSettingsCmd()
	case key.Matches(msg, keys.Edit):
		if m.serverSettings == nil {
			break
		}
		m.SettingsEditing = true
		m.SettingsInput.SetValue(settingValue(*m.serverSettings, serverSettingRows[m.SettingsRow].Key))
		m.SettingsInput.CursorEnd()
		return m, m.SettingsInput.Focus()
	}
	return m, nil
}

var errEmptyValue = errors.New("value cannot be empty")

// buildSettingsUpdate turns one edited row into a partial update.
func buildSettingsUpdate(key, value string) (types.SettingsUpdate, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return types.SettingsUpdate{}, errEmptyValue
	}

	var update types.SettingsUpdate
	switch key {
	case "download_path":
		update.DownloadPath = &value
	case "default_quality":
		update.DefaultQuality = &value
	case "concurrent_downloads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return update, errors.New("concurrent downloads must be a number")
		}
		update.ConcurrentDownloads = &n
	default:
		return update, fmt.Errorf("unknown setting %q", key)
	}
	return update, nil
}
