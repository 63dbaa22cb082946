package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-poll/internal/core"
	"github.com/vovakirdan/wirechat-poll/internal/scroll"
	"github.com/vovakirdan/wirechat-poll/internal/store"
)

// reserved rows below the message viewport: status and input
const chromeHeight = 2

// Dispatcher is the sync loop as seen by the UI.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd core.Command) error
	Events() <-chan core.Event
}

// Options configure the chat UI.
type Options struct {
	Sync     Dispatcher
	Prompter *Prompter
	// Prefs stores the theme preference; optional.
	Prefs  store.Prefs
	Scroll scroll.Tracker
	Logger *zerolog.Logger
}

// Run starts the chat UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(ctx, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Model implements the chat UI.
type Model struct {
	ctx      context.Context
	sync     Dispatcher
	prompter *Prompter
	prefs    store.Prefs
	tracker  scroll.Tracker
	log      *zerolog.Logger

	theme    Theme
	viewport viewport.Model
	input    textinput.Model

	state   core.State
	view    *core.View
	rooms   []string
	status  string
	pending *promptRequest
	width   int
	height  int
}

type eventMsg core.Event

type promptMsg promptRequest

type errMsg struct {
	err error
}

// NewModel creates the UI model. The stored theme is loaded from prefs.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	theme := themes[defaultTheme]
	if opts.Prefs != nil {
		name, ok, err := opts.Prefs.Get(ctx, store.KeyTheme)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read theme")
		}
		if ok {
			theme = themeByName(name)
		}
	}

	input := textinput.New()
	input.Placeholder = "Type a message or /help"
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Focus()

	m := &Model{
		ctx:      ctx,
		sync:     opts.Sync,
		prompter: opts.Prompter,
		prefs:    opts.Prefs,
		tracker:  opts.Scroll,
		log:      logger,
		theme:    theme,
		viewport: viewport.New(0, 0),
		input:    input,
		state:    core.StateUnauthenticated,
	}
	m.applyTheme()
	m.render(true)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitEvent(), m.waitPrompt())
}

func (m *Model) waitEvent() tea.Cmd {
	events := m.sync.Events()
	return func() tea.Msg {
		select {
		case ev := <-events:
			return eventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitPrompt() tea.Cmd {
	if m.prompter == nil {
		return nil
	}
	requests := m.prompter.requests
	return func() tea.Msg {
		select {
		case req := <-requests:
			return promptMsg(req)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) dispatch(cmd core.Command) tea.Cmd {
	return func() tea.Msg {
		if err := m.sync.Dispatch(m.ctx, cmd); err != nil {
			return errMsg{err: fmt.Errorf("%s: %w", cmd.Kind, err)}
		}
		return nil
	}
}

func (m *Model) saveTheme(name string) tea.Cmd {
	if m.prefs == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.prefs.Set(m.ctx, store.KeyTheme, name); err != nil {
			return errMsg{err: fmt.Errorf("save theme: %w", err)}
		}
		return nil
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m, m.handleLine(line)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case eventMsg:
		m.applyEvent(core.Event(msg))
		return m, m.waitEvent()
	case promptMsg:
		req := promptRequest(msg)
		m.pending = &req
		m.status = req.text + " [y/N]"
		return m, nil
	case errMsg:
		m.log.Warn().Err(msg.err).Msg("ui command failed")
		m.status = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleLine(line string) tea.Cmd {
	if m.pending != nil {
		answer := strings.ToLower(strings.TrimSpace(line))
		m.pending.answer <- answer == "y" || answer == "yes"
		m.pending = nil
		m.status = ""
		return m.waitPrompt()
	}

	a, err := parseInput(line)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.status = ""

	switch a.kind {
	case actionCommand:
		return m.dispatch(a.cmd)
	case actionDelete:
		id, ok := m.messageAt(a.index)
		if !ok {
			m.status = fmt.Sprintf("No message %d.", a.index)
			return nil
		}
		return m.dispatch(core.Command{Kind: core.CommandDelete, MessageID: id})
	case actionTheme:
		next := m.theme.other()
		if a.theme != "" {
			next = themeByName(a.theme)
		}
		m.theme = next
		m.applyTheme()
		m.render(false)
		return m.saveTheme(next.Name)
	case actionHelp:
		m.status = helpText
	case actionQuit:
		return tea.Quit
	}
	return nil
}

func (m *Model) messageAt(n int) (string, bool) {
	if m.view == nil || n < 1 || n > len(m.view.Messages) {
		return "", false
	}
	return m.view.Messages[n-1].ID, true
}

func (m *Model) applyEvent(ev core.Event) {
	switch ev.Kind {
	case core.EventState:
		m.state = ev.State
		if ev.State == core.StateUnauthenticated {
			m.rooms = nil
		}
	case core.EventView:
		m.view = ev.View
		m.render(ev.View != nil && ev.View.FollowBottom)
	case core.EventRooms:
		m.rooms = ev.Rooms
	case core.EventAuthFailed:
		m.status = ev.Text
	case core.EventDraftRestored:
		if m.input.Value() == "" {
			m.input.SetValue(ev.Text)
			m.input.CursorEnd()
		}
	}
}

// render redraws the message list, keeping the reader's position unless
// they were at the bottom or follow is set.
func (m *Model) render(follow bool) {
	anchor := m.tracker.Capture(m.viewportState())
	if follow {
		anchor = scroll.FollowBottom()
	}
	m.viewport.SetContent(renderLines(m.view, m.theme))
	m.viewport.SetYOffset(m.tracker.Restore(anchor, m.viewportState()))
}

func (m *Model) viewportState() scroll.Viewport {
	return scroll.Viewport{
		Offset:        m.viewport.YOffset,
		ContentHeight: m.viewport.TotalLineCount(),
		ClientHeight:  m.viewport.Height,
	}
}

func (m *Model) resize() {
	height := m.height - chromeHeight
	if height < 1 {
		height = 1
	}
	anchor := m.tracker.Capture(m.viewportState())
	m.viewport.Width = m.width
	m.viewport.Height = height
	m.input.Width = m.width - lipgloss.Width(m.input.Prompt) - 1
	m.viewport.SetYOffset(m.tracker.Restore(anchor, m.viewportState()))
}

func (m *Model) applyTheme() {
	m.input.PromptStyle = m.theme.Prompt
	m.input.TextStyle = m.theme.Text
}

func (m *Model) View() string {
	status := m.status
	if status == "" {
		status = statusLine(m.state, m.view, m.rooms)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.theme.Status.Render(status),
		m.input.View(),
	)
}
