package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/mailterm/internal/app"
	"github.com/nhle/mailterm/internal/sync"
	"github.com/nhle/mailterm/internal/theme"
)

const (
	idColumnWidth   = 6
	fromColumnWidth = 28

	// composeChrome is the rows used by the compose form around the body
	// text: two single-line boxes, the body box border, its label and the
	// edit-mode line.
	composeChrome = 3 + 3 + 2 + 1 + 1
	labelWidth    = 9
)

// Render draws a full frame from controller state. It reads state only.
func Render(c *app.Controller, l Layout, h help.Model) string {
	mode := c.Mode()
	k := c.Keys()

	var (
		content string
		hints   []key.Binding
	)
	switch mode.Kind {
	case app.ModeMessage:
		content = renderMessage(c, l)
		hints = k.MessageHelp()
	case app.ModeCompose:
		content = renderCompose(c, l)
		hints = k.ComposeHelp(mode.Focus.Edit == app.Editing, mode.Focus.Field == app.FieldBody)
	default:
		content = renderTable(c, l)
		hints = k.TableHelp()
	}

	content = lipgloss.NewStyle().
		Width(l.ContentWidth()).
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	h.Width = max(0, l.Width-theme.StatusBarStyle.GetHorizontalFrameSize())
	header := l.RenderHeader("mailterm", headerStatus(c))
	status := l.RenderStatusBar(h.ShortHelpView(hints))
	return l.RenderWithFrame(header, content, status)
}

func headerStatus(c *app.Controller) string {
	n := len(c.Messages())
	noun := "messages"
	if n == 1 {
		noun = "message"
	}
	status := fmt.Sprintf("%d %s · %s", n, noun, c.Mode())
	if st, ok := c.InboxStatus(); ok {
		status += " · " + inboxLabel(st)
	}
	return status
}

func inboxLabel(st sync.SyncStatus) string {
	switch st.State {
	case sync.SyncRunning:
		return "syncing"
	case sync.SyncError:
		return "sync failed"
	}
	if st.LastSync.IsZero() {
		return "not synced"
	}
	return "synced " + st.LastSync.Format("15:04")
}

func renderTable(c *app.Controller, l Layout) string {
	msgs := c.Messages()
	subjectWidth := max(8, l.ContentWidth()-idColumnWidth-fromColumnWidth-6)

	rows := make([]table.Row, len(msgs))
	for i, m := range msgs {
		rows[i] = table.Row{strconv.FormatInt(m.ID, 10), m.From, m.Subject}
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: idColumnWidth},
			{Title: "From", Width: fromColumnWidth},
			{Title: "Subject", Width: subjectWidth},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithStyles(theme.TableStyles()),
	)

	// SetHeight measures the styled header, so it runs after WithStyles.
	status := tableStatusLine(c)
	if status == "" {
		t.SetHeight(max(2, l.ContentHeight()))
	} else {
		t.SetHeight(max(2, l.ContentHeight()-lipgloss.Height(status)))
	}
	if i, ok := c.Selected(); ok {
		t.SetCursor(i)
	}

	if status == "" {
		return t.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, t.View(), status)
}

func tableStatusLine(c *app.Controller) string {
	mode := c.Mode()
	switch {
	case mode.Status == app.TableMessageSent && mode.Outcome.Failed:
		return theme.ErrorStyle.Render("Send failed: " + mode.Outcome.Reason)
	case mode.Status == app.TableMessageSent:
		return theme.SuccessStyle.Render("Message sent")
	case c.StatusError() != "":
		return theme.ErrorStyle.Render("Error: " + c.StatusError())
	case len(c.Messages()) == 0:
		return theme.HelpStyle.Render("No messages")
	default:
		return ""
	}
}

// renderMessage shows the slice of the detail text selected by the
// controller's scroll offsets.
func renderMessage(c *app.Controller, l Layout) string {
	w, h := l.DetailSize()
	sc := c.Scroll()

	lines := strings.Split(c.DetailText(), "\n")
	start := min(sc.Y, len(lines))
	end := min(start+h, len(lines))

	visible := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		visible = append(visible, ansi.Cut(line, sc.X, sc.X+w))
	}

	return theme.DetailPanelStyle.
		Width(l.ContentWidth() - 2).
		Render(strings.Join(visible, "\n"))
}

func renderCompose(c *app.Controller, l Layout) string {
	mode := c.Mode()
	buf := c.ComposeBuffers()
	focus := mode.Focus
	editing := focus.Edit == app.Editing
	boxWidth := max(1, l.ContentWidth()-2)

	field := func(f app.Field, view string) string {
		focused := focus.Field == f
		label := theme.FieldLabelStyle(focused, focused && editing).Render(f.String() + ":")
		return theme.FieldBoxStyle(focused).Width(boxWidth).Render(label + view)
	}

	bodyFocused := focus.Field == app.FieldBody
	bodyLabel := theme.FieldLabelStyle(bodyFocused, bodyFocused && editing).Render("Body:")
	body := theme.FieldBoxStyle(bodyFocused).
		Width(boxWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, bodyLabel, buf.Body.View()))

	state := "-- NAVIGATING --"
	if editing {
		state = "-- EDITING --"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		field(app.FieldTo, buf.To.View()),
		field(app.FieldSubject, buf.Subject.View()),
		body,
		theme.HelpStyle.Render(state),
	)
}

// sizeCompose fits the compose buffers to the content area.
func sizeCompose(c *app.Controller, l Layout) {
	buf := c.ComposeBuffers()
	inner := max(1, l.ContentWidth()-4)

	buf.SetWidth(inner)
	buf.To.Width = max(1, inner-labelWidth-1)
	buf.Subject.Width = max(1, inner-labelWidth-1)
	buf.SetBodyHeight(l.ContentHeight() - composeChrome)
}
