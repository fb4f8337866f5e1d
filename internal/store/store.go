package store

import (
	"context"
	"errors"

	"github.com/nhle/mailterm/internal/model"
)

// ErrNotFound is returned when a message id does not exist.
var ErrNotFound = errors.New("message not found")

// Store defines the persistence interface for messages. Implementations
// must be safe for concurrent use; every background request calls into
// the store from its own goroutine.
type Store interface {
	// Initialize prepares the store (schema, demo data). Safe to call more
	// than once.
	Initialize(ctx context.Context) error

	// ListMessages returns every message ordered by ascending id. Bodies
	// may be left empty.
	ListMessages(ctx context.Context) ([]model.Message, error)

	// MessageBody returns the body of one message or ErrNotFound.
	MessageBody(ctx context.Context, id int64) (string, error)

	// SaveMessage persists msg and returns it with the assigned id.
	SaveMessage(ctx context.Context, msg model.Message) (model.Message, error)
}

// Importer is implemented by stores that can take messages from a remote
// mailbox. Messages are deduplicated by RemoteID.
type Importer interface {
	ImportMessages(ctx context.Context, msgs []model.Message) (int, error)
}

// SeedMessages returns the demo messages placed in an empty store.
func SeedMessages() []model.Message {
	return []model.Message{
		{
			From:    "bob@bob.me",
			To:      "me@me.me",
			Subject: "Hi",
			Body:    "Hello there",
		},
		{
			From:    "alice@alice.me",
			To:      "me@me.me",
			Subject: "TPS Reports",
			Body:    "Hello there",
		},
	}
}
