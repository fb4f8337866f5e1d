// Package app holds the mode/state controller: every piece of UI state and
// the rules for moving between message table, message view and compose.
// The controller is driven by one goroutine and never blocks.
package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/mailterm/internal/event"
	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/provider"
	"github.com/nhle/mailterm/internal/sync"
)

// hScrollStep is how many columns one left/right press moves.
const hScrollStep = 4

// Scroll is the message view offset in lines and columns.
type Scroll struct {
	Y int
	X int
}

// Inbox is the remote mailbox importer, when one is configured.
type Inbox interface {
	Refresh()
	Status() sync.SyncStatus
}

// Config holds the controller settings that come from the app config.
type Config struct {
	// From is the sender address put on composed messages.
	From string

	// RefreshInterval reloads the list while the table is shown.
	// Zero disables periodic refresh.
	RefreshInterval time.Duration

	// Inbox is refreshed together with the list. Nil without IMAP.
	Inbox Inbox

	Keys   *keys.KeyMap
	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Controller owns the application state.
type Controller struct {
	mode     Mode
	messages []model.Message
	selected int
	current  *model.Message
	detail   string
	scroll   Scroll
	compose  ComposeBuffers

	running   bool
	dirty     bool
	statusErr string

	viewWidth  int
	viewHeight int

	provider provider.Requester
	events   event.Sender
	inbox    Inbox
	keys     *keys.KeyMap
	logger   *slog.Logger

	from            string
	refreshInterval time.Duration
	lastRefresh     time.Time
	now             func() time.Time
}

// New creates a controller in the message table with no messages loaded.
func New(p provider.Requester, events event.Sender, cfg Config) *Controller {
	c := &Controller{
		mode:            MessageTable(),
		selected:        -1,
		running:         true,
		dirty:           true,
		provider:        p,
		events:          events,
		inbox:           cfg.Inbox,
		keys:            cfg.Keys,
		logger:          cfg.Logger,
		from:            cfg.From,
		refreshInterval: cfg.RefreshInterval,
		now:             cfg.Now,
	}
	if c.keys == nil {
		c.keys = keys.DefaultKeyMap()
	}
	c.compose = newComposeBuffers(c.keys.Newline)
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Start requests the initial message list.
func (c *Controller) Start() {
	c.requestList()
}

// Handle routes one event from the queue.
func (c *Controller) Handle(ev event.Event) {
	switch ev.Kind {
	case event.KindTick:
		c.HandleTick()
	case event.KindInput:
		c.HandleKey(ev.Key)
	case event.KindApp:
		c.HandleAppEvent(ev.App)
	}
}

// HandleTick runs periodic work. It never blocks.
func (c *Controller) HandleTick() {
	if c.refreshInterval <= 0 || c.mode.Kind != ModeMessageTable {
		return
	}
	if c.now().Sub(c.lastRefresh) >= c.refreshInterval {
		c.requestList()
	}
}

// HandleKey applies a key press to the active mode. Unhandled keys are
// no-ops.
func (c *Controller) HandleKey(k tea.KeyMsg) {
	defer func() { c.dirty = true }()

	if key.Matches(k, c.keys.ForceQuit) {
		c.events.Send(event.Quit{})
		return
	}

	switch c.mode.Kind {
	case ModeMessageTable:
		c.handleTableKey(k)
	case ModeMessage:
		c.handleMessageKey(k)
	case ModeCompose:
		c.handleComposeKey(k)
	}
}

func (c *Controller) handleTableKey(k tea.KeyMsg) {
	switch {
	case key.Matches(k, c.keys.Open):
		if c.selected >= 0 {
			c.beginView(c.selected)
		}
	case key.Matches(k, c.keys.Compose):
		c.compose.Reset()
		c.setFocus(Focus{Field: FieldTo, Edit: Navigating})
	case key.Matches(k, c.keys.Down):
		c.next()
	case key.Matches(k, c.keys.Up):
		c.previous()
	case key.Matches(k, c.keys.Refresh):
		c.requestList()
		if c.inbox != nil {
			c.inbox.Refresh()
		}
	case key.Matches(k, c.keys.Quit):
		c.events.Send(event.Quit{})
	}
}

func (c *Controller) handleMessageKey(k tea.KeyMsg) {
	switch {
	case key.Matches(k, c.keys.Back):
		c.mode = MessageTable()
	case key.Matches(k, c.keys.ScrollUp):
		c.scrollBy(-1, 0)
	case key.Matches(k, c.keys.ScrollDown):
		c.scrollBy(1, 0)
	case key.Matches(k, c.keys.PageUp):
		c.scrollBy(-c.pageSize(), 0)
	case key.Matches(k, c.keys.PageDown):
		c.scrollBy(c.pageSize(), 0)
	case key.Matches(k, c.keys.ScrollLeft):
		c.scrollBy(0, -hScrollStep)
	case key.Matches(k, c.keys.ScrollRight):
		c.scrollBy(0, hScrollStep)
	}
}

func (c *Controller) handleComposeKey(k tea.KeyMsg) {
	f := c.mode.Focus

	if f.Edit == Editing {
		switch {
		case key.Matches(k, c.keys.StopEditing):
			c.setFocus(Focus{Field: f.Field, Edit: Navigating})
		case key.Matches(k, c.keys.Commit):
			c.setFocus(Focus{Field: f.Field.Next(), Edit: Navigating})
		default:
			c.compose.Update(f.Field, k)
		}
		return
	}

	switch {
	case key.Matches(k, c.keys.Cancel):
		c.compose.Reset()
		c.mode = MessageTable()
	case key.Matches(k, c.keys.Edit):
		c.setFocus(Focus{Field: f.Field, Edit: Editing})
	case key.Matches(k, c.keys.NextField):
		c.setFocus(Focus{Field: f.Field.Next(), Edit: Navigating})
	case key.Matches(k, c.keys.Send) && f.Field == FieldBody:
		c.events.Send(event.SendMessage{})
	}
}

// setFocus enters compose mode with f and moves keyboard focus to match.
func (c *Controller) setFocus(f Focus) {
	c.mode = Compose(f)
	if f.Edit == Editing {
		c.compose.Focus(f.Field)
	} else {
		c.compose.Blur()
	}
}

// HandleAppEvent applies the result of background work or a queued intent.
func (c *Controller) HandleAppEvent(ev event.AppEvent) {
	c.dirty = true

	switch e := ev.(type) {
	case event.Quit:
		c.running = false
	case event.SendMessage:
		c.send()
	case event.MessagesLoaded:
		c.setMessages(e.Messages)
	case event.MessageBodyLoaded:
		c.applyBody(e)
	case event.MessageSent:
		if c.mode.Kind != ModeMessageTable {
			c.logger.Debug("dropping send result outside the table", "mode", c.mode.String())
			return
		}
		if e.Err != "" {
			c.mode = MessageTableSent(Outcome{Failed: true, Reason: e.Err})
			return
		}
		c.mode = MessageTableSent(Outcome{})
		c.requestList()
	case event.Error:
		c.logger.Warn("background request failed", "error", e.Err)
		if e.Err != nil {
			c.statusErr = e.Err.Error()
		}
	case event.InboxSynced:
		if e.Added > 0 {
			c.requestList()
		}
	default:
		c.logger.Debug("ignoring unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

// setMessages replaces the loaded list and keeps the selection in range.
func (c *Controller) setMessages(msgs []model.Message) {
	c.messages = msgs
	switch {
	case len(msgs) == 0:
		c.selected = -1
	case c.selected < 0:
		c.selected = 0
	case c.selected >= len(msgs):
		c.selected = len(msgs) - 1
	}
}

// applyBody switches to the message view when the body belongs to the row
// that is still selected in the table. Anything else is stale.
func (c *Controller) applyBody(e event.MessageBodyLoaded) {
	if c.mode.Kind != ModeMessageTable || c.selected < 0 || c.selected >= len(c.messages) {
		c.logger.Debug("dropping stale body", "id", e.ID, "mode", c.mode.String())
		return
	}
	row := c.messages[c.selected]
	if row.ID != e.ID {
		c.logger.Debug("dropping body for unselected message", "id", e.ID, "selected", row.ID)
		return
	}

	if c.current == nil || c.current.ID != e.ID {
		m := row.WithBody(e.Body)
		c.current = &m
	}
	c.detail = formatDetail(*c.current)
	c.mode = MessageView(c.selected)
}

// beginView asks for the body of row i. The mode changes when it arrives.
func (c *Controller) beginView(i int) {
	if i < 0 || i >= len(c.messages) {
		return
	}
	c.selected = i
	c.scroll = Scroll{}
	c.provider.RequestBody(c.messages[i].ID)
}

func (c *Controller) next() {
	c.clearStatus()
	n := len(c.messages)
	if n == 0 {
		return
	}
	if c.selected < 0 {
		c.selected = 0
		return
	}
	c.selected = (c.selected + 1) % n
}

func (c *Controller) previous() {
	c.clearStatus()
	n := len(c.messages)
	if n == 0 {
		return
	}
	if c.selected < 0 {
		c.selected = n - 1
		return
	}
	c.selected = (c.selected - 1 + n) % n
}

func (c *Controller) clearStatus() {
	if c.mode.Kind == ModeMessageTable {
		c.mode = MessageTable()
	}
	c.statusErr = ""
}

// send hands the compose draft to the provider and returns to the table.
// A queued send that arrives after compose was left is dropped.
func (c *Controller) send() {
	if c.mode.Kind != ModeCompose {
		c.logger.Debug("dropping send outside compose", "mode", c.mode.String())
		return
	}

	to, subject, body := c.compose.Draft()
	c.provider.RequestSend(model.Message{
		From:    c.from,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	c.compose.Reset()
	c.mode = MessageTable()
}

func (c *Controller) requestList() {
	c.lastRefresh = c.now()
	c.provider.RequestList()
}

func (c *Controller) pageSize() int {
	if c.viewHeight > 1 {
		return c.viewHeight
	}
	return 1
}

// scrollBy moves the message view offset, clamped to the detail text.
func (c *Controller) scrollBy(dy, dx int) {
	maxY, maxX := c.maxScroll()
	c.scroll.Y = clamp(c.scroll.Y+dy, 0, maxY)
	c.scroll.X = clamp(c.scroll.X+dx, 0, maxX)
}

func (c *Controller) maxScroll() (int, int) {
	lines := strings.Split(c.detail, "\n")
	widest := 0
	for _, l := range lines {
		if w := ansi.StringWidth(l); w > widest {
			widest = w
		}
	}

	h, w := c.viewHeight, c.viewWidth
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}
	return max(0, len(lines)-h), max(0, widest-w)
}

// SetViewport records the size of the content area so paging and
// scroll limits match what is drawn.
func (c *Controller) SetViewport(width, height int) {
	c.viewWidth = width
	c.viewHeight = height
	c.scrollBy(0, 0)
	c.dirty = true
}

// MarkClean clears the dirty flag after a frame was drawn.
func (c *Controller) MarkClean() { c.dirty = false }

func (c *Controller) Mode() Mode                { return c.mode }
func (c *Controller) Messages() []model.Message { return c.messages }
func (c *Controller) DetailText() string        { return c.detail }
func (c *Controller) Scroll() Scroll            { return c.scroll }
func (c *Controller) Running() bool             { return c.running }
func (c *Controller) Dirty() bool               { return c.dirty }
func (c *Controller) StatusError() string       { return c.statusErr }
func (c *Controller) Keys() *keys.KeyMap        { return c.keys }
func (c *Controller) ComposeBuffers() *ComposeBuffers {
	return &c.compose
}

// InboxStatus reports the last inbox import, or false without IMAP.
func (c *Controller) InboxStatus() (sync.SyncStatus, bool) {
	if c.inbox == nil {
		return sync.SyncStatus{}, false
	}
	return c.inbox.Status(), true
}

// Selected returns the selected row, or false when nothing is selected.
func (c *Controller) Selected() (int, bool) {
	return c.selected, c.selected >= 0
}

// CurrentMessage returns the message last opened in the message view.
func (c *Controller) CurrentMessage() (model.Message, bool) {
	if c.current == nil {
		return model.Message{}, false
	}
	return *c.current, true
}

func formatDetail(m model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", m.From)
	fmt.Fprintf(&b, "To: %s\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	b.WriteString("\n")
	b.WriteString(m.Body)
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
