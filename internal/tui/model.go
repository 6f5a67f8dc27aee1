package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/council-session/internal"
)

type stateMsg internal.State

type submitDoneMsg struct{ err error }

type actionDoneMsg struct {
	notice string
	err    error
}

type catalogMsg struct{ err error }

// Model is the interactive chat screen. It renders controller snapshots and
// forwards key presses to controller operations.
type Model struct {
	ctx  context.Context
	ctrl *internal.Controller

	updates     chan internal.State
	done        chan struct{}
	unsubscribe func()

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	state  internal.State
	rows   []sidebarRow
	cursor int
	notice string

	width, height int
	quitting      bool
}

// New creates a model bound to ctrl
func New(ctx context.Context, ctrl *internal.Controller) *Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 8000
	input.Placeholder = "Ask the council..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	timeline := viewport.New(80, 20)
	timeline.MouseWheelEnabled = true

	if !ctrl.SidebarCollapsed() {
		ctrl.OpenSidebar()
	}

	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		updates:  make(chan internal.State, 1),
		done:     make(chan struct{}),
		input:    input,
		timeline: timeline,
		spinner:  sp,
		state:    ctrl.State(),
		width:    80,
		height:   24,
	}
	m.unsubscribe = ctrl.Subscribe(m.push)
	return m
}

// push keeps only the newest snapshot; it never blocks the controller
func (m *Model) push(s internal.State) {
	for {
		select {
		case m.updates <- s:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m *Model) waitState() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.updates:
			return stateMsg(s)
		case <-m.done:
			return nil
		}
	}
}

// Init starts the spinner, the state listener and the first catalog fetch
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.waitState(),
		m.refreshCatalog(),
	)
}

func (m *Model) refreshCatalog() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if err := ctrl.RefreshModels(ctx); err != nil {
			internal.LogWarn("Failed to load models: %v", err)
		}
		return catalogMsg{err: ctrl.Catalog().Refresh(ctx)}
	}
}

func (m *Model) action(notice string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{notice: notice, err: fn(ctx)}
	}
}

// Update handles one message
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case stateMsg:
		m.state = internal.State(msg)
		m.layout()
		m.rebuildSidebar()
		return m, m.waitState()

	case submitDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, internal.ErrRevealCancelled) {
			internal.LogDebug("Round ended with error: %v", msg.err)
		}
		return m, nil

	case catalogMsg:
		if msg.err != nil {
			m.notice = internal.UserMessage(msg.err)
		}
		m.rebuildSidebar()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.notice = internal.UserMessage(msg.err)
		} else {
			m.notice = msg.notice
		}
		m.rebuildSidebar()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.timeline, cmd = m.timeline.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc":
		if m.state.SidebarOpen {
			m.ctrl.CloseSidebar()
			return m, nil
		}
		return m.quit()
	case "tab":
		open := !m.state.SidebarOpen
		if err := m.ctrl.SetSidebarCollapsed(!open); err != nil {
			internal.LogWarn("Failed to save sidebar state: %v", err)
		}
		if !open {
			m.ctrl.CloseSidebar()
			return m, nil
		}
		m.ctrl.OpenSidebar()
		return m, m.refreshCatalog()
	case "ctrl+n":
		m.ctrl.StartNewChat()
		m.notice = ""
		return m, nil
	case "ctrl+t":
		next := internal.ModeChat
		if m.ctrl.Mode() == internal.ModeChat {
			next = internal.ModeFormal
		}
		if err := m.ctrl.SetMode(next); err != nil {
			m.notice = err.Error()
		}
		return m, nil
	case "ctrl+g":
		m.ctrl.SetIncognito(!m.state.Incognito)
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		return m, cmd
	}

	if m.state.SidebarOpen {
		return m.handleSidebarKey(msg)
	}

	if msg.String() == "enter" {
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetDraft(m.input.Value())
	return m, cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "enter":
		if !ok {
			return m, nil
		}
		if row.folder != nil {
			if _, err := m.ctrl.ToggleFolderCollapsed(row.folder.ID); err != nil {
				m.notice = err.Error()
			}
			m.rebuildSidebar()
			return m, nil
		}
		id := row.session.ID
		return m, m.action("", func(ctx context.Context) error { return m.ctrl.LoadSession(ctx, id) })
	case "p":
		if ok && row.folder == nil {
			id := row.session.ID
			return m, m.action("Pin toggled", func(ctx context.Context) error { return m.ctrl.TogglePinSession(ctx, id) })
		}
	case "d":
		if ok && row.folder == nil {
			id := row.session.ID
			return m, m.action("Session deleted", func(ctx context.Context) error { return m.ctrl.DeleteSession(ctx, id) })
		}
	}
	return m, nil
}

func (m *Model) submit() tea.Cmd {
	question := m.input.Value()
	if m.state.Loading {
		m.notice = internal.ErrOrchestrationInFlight.Error()
		return nil
	}
	m.input.SetValue("")
	m.notice = ""
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return submitDoneMsg{err: ctrl.SubmitQuestion(ctx, question)}
	}
}

// quit tears down the subscription and cancels any reveal in progress
func (m *Model) quit() (tea.Model, tea.Cmd) {
	if !m.quitting {
		m.quitting = true
		m.unsubscribe()
		close(m.done)
		m.ctrl.Close()
	}
	return m, tea.Quit
}

func (m *Model) layout() {
	headerHeight, footerHeight := 1, 3
	h := m.height - headerHeight - footerHeight
	if h < 3 {
		h = 3
	}
	w := m.width
	if m.state.SidebarOpen {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	m.timeline.Width = w
	m.timeline.Height = h
	m.input.Width = m.width - 4
	m.refreshTimeline()
}

func (m *Model) refreshTimeline() {
	atBottom := m.timeline.AtBottom()
	m.timeline.SetContent(renderTranscript(m.state, m.timeline.Width))
	if atBottom || m.state.Loading {
		m.timeline.GotoBottom()
	}
}

// Run starts the full-screen program and blocks until it exits
func Run(ctx context.Context, ctrl *internal.Controller) error {
	m := New(ctx, ctrl)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithMouseCellMotion())
	_, err := p.Run()
	if !m.quitting {
		m.quit()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
