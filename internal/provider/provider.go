// Package provider runs store and transport work off the controller
// goroutine and reports every outcome as an application event.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/mailterm/internal/event"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/store"
	"github.com/nhle/mailterm/internal/transport"
)

// Requester is the asynchronous interface the controller depends on.
// Every method returns immediately; results arrive as events.
type Requester interface {
	RequestList()
	RequestBody(id int64)
	RequestSend(msg model.Message)
}

// Provider is the asynchronous face of a Store.
type Provider struct {
	store     store.Store
	transport transport.Transport
	events    event.Sender
	timeout   time.Duration
	logger    *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout bounds every background request. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithLogger sets the logger used for background failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a Provider. A nil transport delivers locally.
func New(s store.Store, t transport.Transport, events event.Sender, opts ...Option) *Provider {
	p := &Provider{
		store:     s,
		transport: t,
		events:    events,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.transport == nil {
		p.transport = transport.NewLocal(p.logger)
	}
	return p
}

// Initialize prepares the store synchronously. Failure is fatal to startup.
func (p *Provider) Initialize(ctx context.Context) error {
	if err := p.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	return nil
}

// RequestList loads the message list and reports MessagesLoaded.
func (p *Provider) RequestList() {
	p.run("list", func(ctx context.Context) event.AppEvent {
		msgs, err := p.store.ListMessages(ctx)
		if err != nil {
			return event.Error{Err: err}
		}
		return event.MessagesLoaded{Messages: msgs}
	})
}

// RequestBody loads one body and reports MessageBodyLoaded.
func (p *Provider) RequestBody(id int64) {
	p.run("body", func(ctx context.Context) event.AppEvent {
		body, err := p.store.MessageBody(ctx, id)
		if err != nil {
			return event.Error{Err: err}
		}
		return event.MessageBodyLoaded{ID: id, Body: body}
	})
}

// RequestSend stores msg, delivers it, and reports MessageSent. A message
// that was stored but not delivered is kept.
func (p *Provider) RequestSend(msg model.Message) {
	p.run("send", func(ctx context.Context) event.AppEvent {
		saved, err := p.store.SaveMessage(ctx, msg)
		if err != nil {
			return event.MessageSent{Err: err.Error()}
		}
		if err := p.transport.Deliver(ctx, saved); err != nil {
			return event.MessageSent{Err: err.Error()}
		}
		return event.MessageSent{}
	})
}

// Wait blocks until every in-flight request has reported.
func (p *Provider) Wait() {
	p.wg.Wait()
}

// run executes fn on its own goroutine and forwards its result.
func (p *Provider) run(op string, fn func(ctx context.Context) event.AppEvent) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx := context.Background()
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		ev := fn(ctx)
		switch e := ev.(type) {
		case event.Error:
			p.logger.Warn("store request failed", "op", op, "error", e.Err)
		case event.MessageSent:
			if e.Err != "" {
				p.logger.Warn("send failed", "error", e.Err)
			}
		}
		p.events.Send(ev)
	}()
}
