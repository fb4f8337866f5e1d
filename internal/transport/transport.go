// Package transport delivers composed messages to their recipients.
package transport

import (
	"context"
	"log/slog"

	"github.com/nhle/mailterm/internal/model"
)

// Transport delivers a stored message.
type Transport interface {
	Deliver(ctx context.Context, msg model.Message) error
}

// Local records deliveries in the log and never fails. It is used when no
// outbound server is configured; the message is still kept by the store.
type Local struct {
	logger *slog.Logger
}

// NewLocal creates a Local transport.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{logger: logger}
}

func (l *Local) Deliver(ctx context.Context, msg model.Message) error {
	l.logger.Info("message delivered locally",
		"id", msg.ID,
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
