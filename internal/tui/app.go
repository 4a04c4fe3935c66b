package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/crate/internal/app"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/tui/styles"
	"github.com/mmcdole/crate/internal/view"
)

// Pane identifies which side has keyboard focus
type Pane int

const (
	PaneSidebar Pane = iota
	PaneMain
)

// Model is the main Bubble Tea model for the application
type Model struct {
	App      *app.App
	Frames   *FrameQueue
	Interval time.Duration
	Keys     KeyMap
	logger   *slog.Logger

	// Dimensions
	Width  int
	Height int
	Ready  bool

	// Navigation
	Focus         Pane
	Page          string // view.PageDownloads, view.PageLiked or app.RouteGroup
	GroupKey      string // sidebar group shown when Page is app.RouteGroup
	SidebarCursor int
	RowCursor     int

	// Filtering
	Filtering   bool
	FilterInput textinput.Model

	// UI state
	ShowHelp    bool
	StatusMsg   string
	StatusIsErr bool
	WorkerDone  bool

	workerCmd tea.Cmd
}

// NewModel creates the model. It navigates to startPage right away; the
// program has not started yet so this still runs on the UI thread.
func NewModel(a *app.App, frames *FrameQueue, interval time.Duration, startPage string, workerCmd tea.Cmd, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.CharLimit = 64

	m := Model{
		App:         a,
		Frames:      frames,
		Interval:    interval,
		Keys:        Keys,
		logger:      logger,
		Focus:       PaneSidebar,
		FilterInput: ti,
		workerCmd:   workerCmd,
	}
	m.openPage(startPage)
	return m
}

// Init starts the frame clock and the worker stream
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{FrameTickCmd(m.Interval)}
	if m.workerCmd != nil {
		cmds = append(cmds, m.workerCmd)
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		return m, nil

	case FrameMsg:
		m.Frames.Flush()
		m.followGroup()
		m.clampCursors()
		return m, FrameTickCmd(m.Interval)

	case WorkerMsg:
		m.App.HandleWorker(msg.Message)
		return m, msg.NextCmd

	case WorkerExitedMsg:
		m.WorkerDone = true
		if msg.Err != nil {
			m.logger.Error("worker exited", "error", msg.Err)
			m.StatusMsg, m.StatusIsErr = "Worker stopped: "+msg.Err.Error(), true
		} else {
			m.StatusMsg, m.StatusIsErr = "Worker finished", false
		}
		return m, ClearStatusCmd(5 * time.Second)

	case ClearStatusMsg:
		m.StatusMsg, m.StatusIsErr = "", false
		return m, nil

	case tea.KeyMsg:
		if m.Filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowHelp = !m.ShowHelp

	case key.Matches(msg, m.Keys.SwitchPane):
		if m.Focus == PaneSidebar {
			m.Focus = PaneMain
		} else {
			m.Focus = PaneSidebar
		}

	case key.Matches(msg, m.Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.Keys.Home):
		m.moveCursor(-1 << 30)
	case key.Matches(msg, m.Keys.End):
		m.moveCursor(1 << 30)

	case key.Matches(msg, m.Keys.Enter):
		if m.Focus == PaneSidebar {
			groups := m.App.Sidebar.Groups()
			if m.SidebarCursor < len(groups) {
				g := groups[m.SidebarCursor]
				m.App.OpenGroup(g)
				m.Page, m.GroupKey, m.RowCursor = app.RouteGroup, g.Key, 0
				m.Focus = PaneMain
			}
		}

	case key.Matches(msg, m.Keys.Downloads):
		m.openPage(view.PageDownloads)
	case key.Matches(msg, m.Keys.Liked):
		m.openPage(view.PageLiked)

	case key.Matches(msg, m.Keys.Filter):
		m.Filtering = true
		m.FilterInput.SetValue("")
		return m, m.FilterInput.Focus()

	case key.Matches(msg, m.Keys.Escape):
		m.applyFilter("")

	case key.Matches(msg, m.Keys.Refresh):
		m.App.Bus.ChangedBulk()
		m.StatusMsg, m.StatusIsErr = "Refreshing", false
		return m, ClearStatusCmd(2 * time.Second)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Filtering = false
		m.FilterInput.Blur()
		m.applyFilter("")
		return m, nil
	case tea.KeyEnter:
		m.Filtering = false
		m.FilterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	m.applyFilter(m.FilterInput.Value())
	return m, cmd
}

// filterTarget is the surface the filter applies to: the sidebar when it has
// focus, otherwise the current full page
func (m *Model) filterTarget() interface{ SetFilter(string) } {
	if m.Focus == PaneSidebar {
		return m.App.Sidebar
	}
	if p := m.currentPage(); p != nil {
		return p
	}
	return nil
}

func (m *Model) applyFilter(q string) {
	if t := m.filterTarget(); t != nil {
		t.SetFilter(q)
	}
	m.SidebarCursor, m.RowCursor = 0, 0
}

func (m *Model) openPage(page string) {
	switch page {
	case view.PageDownloads, view.PageLiked:
	default:
		page = view.PageDownloads
	}
	m.Page, m.GroupKey, m.RowCursor = page, "", 0
	m.App.OpenPage(page)
}

func (m *Model) currentPage() *view.ListPage {
	switch m.Page {
	case view.PageDownloads:
		return m.App.Downloads
	case view.PageLiked:
		return m.App.Liked
	}
	return nil
}

// followGroup rebinds the open group when its membership changed, so tracks
// that join a playlist while it is open show up without reopening it
func (m *Model) followGroup() {
	if m.Page != app.RouteGroup {
		return
	}
	binding, ok := m.App.Badges.Binding(m.App.Routes.Route().EntityID)
	if !ok {
		return
	}
	for _, g := range m.App.Sidebar.Groups() {
		if g.Key != m.GroupKey {
			continue
		}
		if !sameTracks(g.TrackIDs, binding.TrackIDs) {
			m.App.OpenGroup(g)
		}
		return
	}
}

func sameTracks(a, b []domain.TrackID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Model) moveCursor(delta int) {
	if m.Focus == PaneSidebar {
		m.SidebarCursor += delta
	} else {
		m.RowCursor += delta
	}
	m.clampCursors()
}

func (m *Model) clampCursors() {
	m.SidebarCursor = clamp(m.SidebarCursor, len(m.App.Sidebar.Groups()))
	m.RowCursor = clamp(m.RowCursor, m.mainRows())
}

func (m *Model) mainRows() int {
	if p := m.currentPage(); p != nil {
		return len(p.Rows())
	}
	return len(m.App.Badges.Rows())
}

func clamp(v, n int) int {
	if n <= 0 || v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	layout := calculateLayout(m.Width, m.Height)

	sidebarBorder, mainBorder := styles.InactiveBorder, styles.InactiveBorder
	if m.Focus == PaneSidebar {
		sidebarBorder = styles.ActiveBorder
	} else {
		mainBorder = styles.ActiveBorder
	}

	cursor := -1
	if m.Focus == PaneSidebar {
		cursor = m.SidebarCursor
	}
	sidebar := sidebarBorder.
		Width(max(layout.sidebarWidth-2, 0)).
		Height(max(layout.contentHeight-2, 0)).
		Render(m.App.Sidebar.Render(cursor))
	main := mainBorder.
		Width(max(layout.mainWidth-2, 0)).
		Height(max(layout.contentHeight-2, 0)).
		Render(m.renderMain(layout.mainWidth - 2))

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render("crate")
	var parts []string
	parts = append(parts, title)
	parts = append(parts, styles.DimStyle.Render(fmt.Sprintf("%d tracks", m.App.Library.Len())))
	if m.WorkerDone {
		parts = append(parts, styles.DimStyle.Render("worker idle"))
	}
	if m.StatusMsg != "" {
		style := styles.SuccessStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		parts = append(parts, style.Render(m.StatusMsg))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderMain(width int) string {
	if p := m.currentPage(); p != nil {
		return p.Render(width)
	}
	return m.renderGroup(width)
}

// renderGroup draws the action bar above the group's tracks with their badges
func (m Model) renderGroup(width int) string {
	var b strings.Builder
	route := m.App.Routes.Route()
	label := route.EntityID
	for _, g := range m.App.Sidebar.Groups() {
		if g.Key == m.GroupKey {
			label = g.Label
		}
	}
	b.WriteString(styles.TitleStyle.Render(styles.Truncate(label, width)))
	b.WriteString("\n")
	b.WriteString(m.App.ActionBar.Render())
	b.WriteString("\n\n")

	titleWidth := max(width-6, 10)
	for i, id := range m.App.Badges.Rows() {
		rec, ok := m.App.Library.Get(id)
		title := "Track " + id.String()
		if ok {
			title = rec.DisplayTitle()
		}
		row := m.App.Badges.State(id).Render() + " " + styles.Truncate(title, titleWidth)
		if m.Focus == PaneMain && i == m.RowCursor {
			row = styles.SelectedItemStyle.Render(row)
		} else {
			row = styles.NormalItemStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return styles.PageStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderFooter() string {
	if m.Filtering {
		return m.FilterInput.View()
	}
	bindings := m.Keys.ShortHelp()
	if m.ShowHelp {
		bindings = nil
		for _, group := range m.Keys.FullHelp() {
			bindings = append(bindings, group...)
		}
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, styles.HelpKeyStyle.Render(h.Key)+" "+styles.HelpDescStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
