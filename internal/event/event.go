// Package event carries ticks, key input and application events from their
// producers to the single controller goroutine.
package event

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailterm/internal/model"
)

// Kind tags an Event.
type Kind int

const (
	KindTick Kind = iota
	KindInput
	KindApp
)

func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindInput:
		return "input"
	case KindApp:
		return "app"
	default:
		return "unknown"
	}
}

// Event is one item on the queue. Key is set for KindInput, App for KindApp.
type Event struct {
	Kind Kind
	Key  tea.KeyMsg
	App  AppEvent
}

// Tick returns a tick event.
func Tick() Event { return Event{Kind: KindTick} }

// Input wraps a key press.
func Input(k tea.KeyMsg) Event { return Event{Kind: KindInput, Key: k} }

// App wraps an application event.
func App(a AppEvent) Event { return Event{Kind: KindApp, App: a} }

// AppEvent is the result of background work or a user intent, delivered
// through the queue rather than returned directly.
type AppEvent interface {
	appEvent()
}

// Quit stops the controller.
type Quit struct{}

// SendMessage asks the controller to send the current compose draft.
type SendMessage struct{}

// MessagesLoaded carries the full message list, ascending by id.
type MessagesLoaded struct {
	Messages []model.Message
}

// MessageBodyLoaded carries the body fetched for one message.
type MessageBodyLoaded struct {
	ID   int64
	Body string
}

// MessageSent reports the outcome of a send. Err is empty on success.
type MessageSent struct {
	Err string
}

// Error reports a recoverable background failure.
type Error struct {
	Err error
}

// InboxSynced reports a finished inbox import.
type InboxSynced struct {
	Added int
}

func (Quit) appEvent()              {}
func (SendMessage) appEvent()       {}
func (MessagesLoaded) appEvent()    {}
func (MessageBodyLoaded) appEvent() {}
func (MessageSent) appEvent()       {}
func (Error) appEvent()             {}
func (InboxSynced) appEvent()       {}

// Sender is the producer side of the queue as seen by background work.
type Sender interface {
	Send(AppEvent)
}
