package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ComposeBuffers holds the three compose fields. Their cursor and scroll
// state lives here, owned by the controller, and survives mode changes
// until the next reset.
type ComposeBuffers struct {
	To      textinput.Model
	Subject textinput.Model
	Body    textarea.Model
}

func newComposeBuffers(newline key.Binding) ComposeBuffers {
	to := textinput.New()
	to.Prompt = ""
	to.Placeholder = "someone@example.com"
	to.CharLimit = 320
	to.Cursor.SetMode(cursor.CursorStatic)

	subject := textinput.New()
	subject.Prompt = ""
	subject.CharLimit = 998
	subject.Cursor.SetMode(cursor.CursorStatic)

	body := textarea.New()
	body.ShowLineNumbers = false
	body.CharLimit = 0
	body.Placeholder = "Write your message"
	body.KeyMap.InsertNewline.SetKeys(newline.Keys()...)
	body.Cursor.SetMode(cursor.CursorStatic)

	return ComposeBuffers{To: to, Subject: subject, Body: body}
}

// Reset empties every buffer and removes focus.
func (b *ComposeBuffers) Reset() {
	b.To.Reset()
	b.Subject.Reset()
	b.Body.Reset()
	b.Blur()
}

// Focus gives keyboard focus to one field.
func (b *ComposeBuffers) Focus(f Field) {
	b.Blur()
	switch f {
	case FieldTo:
		b.To.Focus()
	case FieldSubject:
		b.Subject.Focus()
	case FieldBody:
		b.Body.Focus()
	}
}

// Blur removes focus from every field.
func (b *ComposeBuffers) Blur() {
	b.To.Blur()
	b.Subject.Blur()
	b.Body.Blur()
}

// Update forwards a key to the editing primitive of field f.
func (b *ComposeBuffers) Update(f Field, k tea.KeyMsg) {
	switch f {
	case FieldTo:
		b.To, _ = b.To.Update(k)
	case FieldSubject:
		b.Subject, _ = b.Subject.Update(k)
	case FieldBody:
		b.Body, _ = b.Body.Update(k)
	}
}

// SetWidth resizes the buffers to the available columns.
func (b *ComposeBuffers) SetWidth(w int) {
	if w < 1 {
		return
	}
	b.To.Width = w
	b.Subject.Width = w
	b.Body.SetWidth(w)
}

// SetBodyHeight sets the visible rows of the body area.
func (b *ComposeBuffers) SetBodyHeight(h int) {
	if h < 1 {
		h = 1
	}
	b.Body.SetHeight(h)
}

// Draft returns the recipient and subject (first line of each) and the
// full body.
func (b *ComposeBuffers) Draft() (to, subject, body string) {
	return firstLine(b.To.Value()), firstLine(b.Subject.Value()), b.Body.Value()
}

// Empty reports whether no field holds any text.
func (b *ComposeBuffers) Empty() bool {
	return b.To.Value() == "" && b.Subject.Value() == "" && b.Body.Value() == ""
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
