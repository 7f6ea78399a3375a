package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/shared"
	"github.com/soracane/lastgen/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PeriodListView ViewState = iota
	TopListView
	ConfirmView
	GenerateView
	ResultView
)

// Period is one two-month window of the history with its play count.
type Period struct {
	Year       int
	StartMonth time.Month
	Plays      int
}

func (p Period) Label() string {
	return fmt.Sprintf("%d %s–%s", p.Year,
		p.StartMonth.String()[:3], (p.StartMonth + 1).String()[:3])
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	history      *history.Service
	engine       *tasks.Engine
	user         string
	cfg          shared.GeneratorConfig
	width        int
	height       int
	events       []history.Event
	periodList   list.Model
	topList      list.Model
	selected     *Period
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.PlaylistRunResult
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no},
		{k.restart, k.quit},
	}
}

// periodItem wraps [Period] to implement list.Item.
type periodItem struct {
	period Period
}

func (i periodItem) FilterValue() string { return i.period.Label() }
func (i periodItem) Title() string       { return i.period.Label() }
func (i periodItem) Description() string {
	return fmt.Sprintf("%d plays", i.period.Plays)
}

// topItem wraps a counter entry to implement list.Item.
type topItem struct {
	rank  int
	entry history.Entry
}

func (i topItem) FilterValue() string { return i.entry.Key.Title }
func (i topItem) Title() string {
	return fmt.Sprintf("%d. %s", i.rank, i.entry.Key.Title)
}
func (i topItem) Description() string {
	return fmt.Sprintf("%s • %d plays", i.entry.Key.Artist, i.entry.Count)
}

type historyLoadedMsg struct {
	events []history.Event
	err    error
}

type progressUpdateMsg tasks.ProgressUpdate

type generateCompleteMsg struct {
	result *tasks.PlaylistRunResult
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, historySvc *history.Service, engine *tasks.Engine, user string, cfg shared.GeneratorConfig) *Model {
	return &Model{
		ctx:     ctx,
		view:    PeriodListView,
		history: historySvc,
		engine:  engine,
		user:    user,
		cfg:     cfg,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the TUI by loading the cached history.
func (m *Model) Init() tea.Cmd {
	return m.loadHistory()
}

// periods derives the completed two-month windows of the loaded history,
// newest first, with per-window play counts.
func (m *Model) periods() []Period {
	if len(m.events) == 0 {
		return nil
	}

	loc := m.cfg.Location()
	oldest := time.Unix(m.events[len(m.events)-1].Timestamp, 0).In(loc)
	now := time.Now().In(loc)

	year := oldest.Year()
	month := time.Month((int(oldest.Month())-1)/2*2 + 1)

	var out []Period
	for {
		since, until := history.BimonthRange(year, month, loc)
		if time.Unix(until, 0).After(now) {
			break
		}

		counter, _ := history.CountRange(m.events, since, until, true)
		plays := 0
		for _, e := range counter.MostCommon() {
			plays += e.Count
		}
		if plays > 0 {
			out = append(out, Period{Year: year, StartMonth: month, Plays: plays})
		}

		month += 2
		if month > time.December {
			year, month = year+1, time.January
		}
	}

	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// topEntries counts the selected period's plays from the loaded history.
func (m *Model) topEntries(p Period) []history.Entry {
	since, until := history.BimonthRange(p.Year, p.StartMonth, m.cfg.Location())
	counter, _ := history.CountRange(m.events, since, until, true)

	entries := counter.MostCommon()
	if len(entries) > m.cfg.TrackCount && m.cfg.TrackCount > 0 {
		entries = entries[:m.cfg.TrackCount]
	}
	return entries
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.periodList.Width() == 0 {
			m.periodList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.topList.Width() == 0 {
			m.topList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PeriodListView:
			return m.handlePeriodListKeys(msg)
		case TopListView:
			return m.handleTopListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case historyLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.events = msg.events
		periods := m.periods()
		items := make([]list.Item, len(periods))
		for i, p := range periods {
			items[i] = periodItem{period: p}
		}
		m.periodList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.periodList.Title = fmt.Sprintf("Listening history: %s", m.user)
		m.periodList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case generateCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		if m.progressChan != nil {
			m.progressChan = nil
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PeriodListView:
		return m.renderPeriodList()
	case TopListView:
		return m.renderTopList()
	case ConfirmView:
		return m.renderConfirm()
	case GenerateView:
		return m.renderGenerate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePeriodListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.periodList.SelectedItem()
		if selected != nil {
			if p, ok := selected.(periodItem); ok {
				m.selected = &p.period
				entries := m.topEntries(p.period)
				items := make([]list.Item, len(entries))
				for i, e := range entries {
					items[i] = topItem{rank: i + 1, entry: e}
				}
				m.topList = list.New(items, list.NewDefaultDelegate(), 0, 0)
				m.topList.Title = fmt.Sprintf("Top tracks: %s", p.period.Label())
				m.topList.SetSize(m.width-4, m.height-8)
				m.view = TopListView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.periodList, cmd = m.periodList.Update(msg)
	return m, cmd
}

func (m *Model) handleTopListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PeriodListView
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.topList, cmd = m.topList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.view = TopListView
		return m, nil
	case "y":
		m.view = GenerateView
		return m, m.startGenerate()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PeriodListView
		m.selected = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PeriodListView:
		m.periodList, cmd = m.periodList.Update(msg)
	case TopListView:
		m.topList, cmd = m.topList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		events, err := m.history.History(m.ctx, m.user, false, false)
		return historyLoadedMsg{events: events, err: err}
	}
}

func (m *Model) startGenerate() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	period := *m.selected

	go func() {
		result, err := m.engine.GenerateWindow(m.ctx, m.progressChan, m.user, period.Year, period.StartMonth, tasks.GenerateOpts{UpdateOld: true})
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return generateCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return generateCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPeriodList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.periodList.View(), helpView)
}

func (m *Model) renderTopList() string {
	generateKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "generate playlist"),
	)
	helpKeys := []key.Binding{generateKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.topList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Generate playlist for %s?", m.selected.Label()))
	info := fmt.Sprintf("\nPeriod: %s\nPlays: %d\n", m.selected.Label(), m.selected.Plays)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderGenerate() string {
	title := styles.title.Render("Generating Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.ResolveTracks:
		phase = fmt.Sprintf("Resolving tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.SortTracks:
		phase = "Ordering tracks by tempo..."
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Generation failed: %v\n\nPress r to continue, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to continue, q to quit")
	}

	title := styles.ok.Render("✓ Playlist Ready")
	var name string
	switch {
	case len(m.result.Created) > 0:
		name = m.result.Created[0]
	case len(m.result.Updated) > 0:
		name = m.result.Updated[0]
	case len(m.result.Skipped) > 0:
		name = m.result.Skipped[0] + " (skipped)"
	}
	info := fmt.Sprintf("\n%s\n", name)

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s\n%s", title, info, helpView)
}
