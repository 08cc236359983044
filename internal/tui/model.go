package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/zen-downloader/zen/internal/engine/types"
	"github.com/zen-downloader/zen/internal/queue"
	"github.com/zen-downloader/zen/internal/session"
	"github.com/zen-downloader/zen/internal/settings"
)

type UIState int //Defines UIState as int to be used in rootModel

const (
	DashboardState UIState = iota //DashboardState is 0 increments after each line
	InputState                    //InputState is 1
	DetailState                   //DetailState is 2
	SettingsState                 //SettingsState is 3
)

// Deps are the components the dashboard drives. Events must be the channel
// the queue client was built with.
type Deps struct {
	Queue    *queue.Client
	Settings *settings.Store
	Session  *session.Session
	Events   chan any

	// Defaults fills format, audio and path of items added from the dashboard.
	Defaults types.QueueItem
}

type RootModel struct {
	ctx      context.Context
	queue    *queue.Client
	settings *settings.Store
	sess     *session.Session
	events   chan any
	defaults types.QueueItem

	width  int
	height int
	state  UIState

	snapshot     types.QueueSnapshot
	expanded     bool
	cursor       int
	SpeedHistory []float64 // aggregate MB/s, one sample per snapshot

	poller *queue.Poller

	input    textinput.Model
	progress progress.Model
	help     help.Model

	serverSettings  *types.Settings
	SettingsRow     int
	SettingsEditing bool
	SettingsInput   textinput.Model

	notification string
	notifyErr    bool
}

// InitialRootModel builds the dashboard model. ctx bounds every request the
// dashboard makes.
func InitialRootModel(ctx context.Context, deps Deps) RootModel {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://www.youtube.com/watch?v=..."
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	settingsInput := textinput.New()
	settingsInput.Width = InputWidth - 20
	settingsInput.Prompt = ""

	events := deps.Events
	if events == nil {
		events = make(chan any, EventChannelBuffer)
	}

	return RootModel{
		ctx:           ctx,
		queue:         deps.Queue,
		settings:      deps.Settings,
		sess:          deps.Session,
		events:        events,
		defaults:      deps.Defaults,
		state:         DashboardState,
		expanded:      deps.Session.QueueExpanded(),
		snapshot:      deps.Session.Snapshot(),
		input:         urlInput,
		SettingsInput: settingsInput,
		progress:      progress.New(progress.WithDefaultGradient()),
		help:          help.New(),
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(
		listenForActivity(m.events),
		m.reloadCmd(),
		m.loadSettingsCmd(),
	)
}

func listenForActivity(sub chan any) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// Run starts the dashboard on the terminal and blocks until it exits.
func Run(ctx context.Context, deps Deps) error {
	m := InitialRootModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	deps.Queue.StopProcessing()
	return err
}

// SelectedTask returns the task under the cursor.
func (m RootModel) SelectedTask() (types.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Queue) {
		return types.Task{}, false
	}
	return m.snapshot.Queue[m.cursor], true
}

// parseSpeed converts a server speed label such as "1.2MiB/s" to bytes per
// second. Unparseable labels count as zero.
func parseSpeed(label string) float64 {
	s := strings.TrimSpace(label)
	s = strings.TrimSpace(strings.TrimSuffix(s, "/s"))
	if s == "" {
		return 0
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return float64(n)
}

// aggregateSpeed sums the speed of every active task in MB/s.
func aggregateSpeed(snap types.QueueSnapshot) float64 {
	total := 0.0
	for _, t := range snap.Queue {
		if t.Status.IsActive() {
			total += parseSpeed(t.Speed)
		}
	}
	return total / Megabyte
}
