// Package ui hosts the controller inside a Bubble Tea program and projects
// its state onto the terminal.
package ui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailterm/internal/app"
	"github.com/nhle/mailterm/internal/event"
)

// eventMsg carries one queued event into the Bubble Tea runtime.
type eventMsg struct {
	ev event.Event
}

// queueClosedMsg is delivered once the event queue is closed and drained.
type queueClosedMsg struct{}

// Model is the root Bubble Tea model. Key presses go onto the event queue
// instead of being handled directly, so keys and background results reach
// the controller in one order.
type Model struct {
	ctrl   *app.Controller
	events *event.Handler
	layout Layout
	help   help.Model
	logger *slog.Logger

	frame string
	ready bool
}

// New creates the root model.
func New(ctrl *app.Controller, events *event.Handler, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		ctrl:   ctrl,
		events: events,
		layout: NewLayout(80, 24),
		help:   help.New(),
		logger: logger,
	}
}

// Init starts pumping the event queue.
func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.DetailSize()
		m.ctrl.SetViewport(w, h)
		sizeCompose(m.ctrl, m.layout)
		m.render()
		return m, nil

	case tea.KeyMsg:
		m.events.SendKey(msg)
		return m, nil

	case eventMsg:
		m.ctrl.Handle(msg.ev)
		if !m.ctrl.Running() {
			m.logger.Info("controller stopped")
			return m, tea.Quit
		}
		if m.ctrl.Dirty() {
			m.render()
		}
		return m, m.waitForEvent()

	case queueClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View returns the last rendered frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.frame
}

func (m *Model) render() {
	m.frame = Render(m.ctrl, m.layout, m.help)
	m.ctrl.MarkClean()
}

// waitForEvent returns a tea.Cmd that blocks on the queue and delivers
// the next event. Update issues a new one after each event, so exactly
// one is outstanding at a time.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, err := events.Next(context.Background())
		if err != nil {
			return queueClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}
