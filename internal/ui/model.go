package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/srg/gattpanel/internal/groutine"
	"github.com/srg/gattpanel/internal/panel"
)

// StateMsg carries a panel state snapshot into the event loop.
type StateMsg struct {
	State panel.State
}

// actionDoneMsg reports the end of a panel operation run off the loop.
type actionDoneMsg struct {
	closed bool
	err    error
}

// Notifier coalesces panel state changes into wake-ups for the event loop.
// Pass Notify to panel.WithOnChange. It never blocks the caller.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

func (n *Notifier) Notify(panel.State) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Model is the bubbletea model of a connection panel.
type Model struct {
	ctx      context.Context
	panel    *panel.Panel
	notifier *Notifier
	theme    Theme

	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	closed   bool
	err      error
}

// NewModel creates the model. notifier must be the one registered on p
// through panel.WithOnChange.
func NewModel(ctx context.Context, p *panel.Panel, notifier *Notifier, theme Theme) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.Spinner

	return Model{
		ctx:      ctx,
		panel:    p,
		notifier: notifier,
		theme:    theme,
		spinner:  s,
	}
}

// Err returns the last error reported by a panel operation, if any.
func (m Model) Err() error {
	return m.err
}

// Closed reports whether the panel was dismissed.
func (m Model) Closed() bool {
	return m.closed
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange(), m.show())
}

func (m Model) waitForChange() tea.Cmd {
	ch, p, ctx := m.notifier.ch, m.panel, m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return StateMsg{State: p.State()}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) show() tea.Cmd {
	return m.run("panel-show", func(ctx context.Context) (bool, error) {
		return false, m.panel.Show(ctx)
	})
}

func (m Model) primary() tea.Cmd {
	return m.run("panel-primary-action", func(ctx context.Context) (bool, error) {
		closed := false
		err := m.panel.PrimaryAction(ctx, func() { closed = true })
		return closed, err
	})
}

// run executes fn in a named goroutine and reports back as actionDoneMsg.
func (m Model) run(name string, fn func(ctx context.Context) (bool, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		closed, err := groutine.Await(ctx, name, fn)
		return actionDoneMsg{closed: closed, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height
		}
		m.refresh()
		return m, nil

	case StateMsg:
		m.refresh()
		return m, m.waitForChange()

	case actionDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, panel.ErrAttemptInFlight) {
			m.err = msg.err
		}
		if msg.closed {
			m.closed = true
			return m, tea.Quit
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.panel.Close(func() { m.closed = true })
		return m, tea.Quit
	case "enter", "c":
		return m, m.primary()
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	}
	return m, nil
}

func (m *Model) refresh() {
	if m.ready {
		m.viewport.SetContent(m.render())
	}
}

func (m Model) render() string {
	vm := NewViewModel(m.panel)
	vm.Spinner = m.spinner.View()
	return Render(vm, m.theme)
}

func (m Model) View() string {
	if m.ready {
		return m.viewport.View()
	}
	return m.render()
}
