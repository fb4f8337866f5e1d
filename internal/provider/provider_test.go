package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nhle/mailterm/internal/event"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/store"
)

type captureSender struct {
	mu     sync.Mutex
	events []event.AppEvent
}

func (c *captureSender) Send(ev event.AppEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSender) all() []event.AppEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.AppEvent(nil), c.events...)
}

type fakeTransport struct {
	mu        sync.Mutex
	err       error
	delivered []model.Message
}

func (f *fakeTransport) Deliver(ctx context.Context, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, msg)
	return nil
}

// slowStore blocks every call until ctx is done.
type slowStore struct{ store.MemoryStore }

func (s *slowStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newSeeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(true)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestRequestList(t *testing.T) {
	sender := &captureSender{}
	p := New(newSeeded(t), &fakeTransport{}, sender)

	p.RequestList()
	p.Wait()

	evs := sender.all()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	loaded, ok := evs[0].(event.MessagesLoaded)
	if !ok {
		t.Fatalf("expected MessagesLoaded, got %T", evs[0])
	}
	if len(loaded.Messages) != 2 || loaded.Messages[0].ID != 1 {
		t.Errorf("unexpected messages %+v", loaded.Messages)
	}
}

func TestRequestBody(t *testing.T) {
	sender := &captureSender{}
	p := New(newSeeded(t), &fakeTransport{}, sender)

	p.RequestBody(2)
	p.RequestBody(9)
	p.Wait()

	var gotBody, gotErr bool
	for _, ev := range sender.all() {
		switch e := ev.(type) {
		case event.MessageBodyLoaded:
			gotBody = true
			if diff := cmp.Diff(event.MessageBodyLoaded{ID: 2, Body: "Hello there"}, e); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		case event.Error:
			gotErr = true
			if !errors.Is(e.Err, store.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", e.Err)
			}
		default:
			t.Errorf("unexpected event %T", ev)
		}
	}
	if !gotBody || !gotErr {
		t.Fatalf("expected one body and one error, got %+v", sender.all())
	}
}

func TestRequestSendStoresThenDelivers(t *testing.T) {
	s := newSeeded(t)
	tr := &fakeTransport{}
	sender := &captureSender{}
	p := New(s, tr, sender)

	draft := model.Message{From: "me@me.me", To: "bob@bob.me", Subject: "Re: Hi", Body: "yo"}
	p.RequestSend(draft)
	p.Wait()

	if diff := cmp.Diff([]event.AppEvent{event.MessageSent{}}, sender.all()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	msgs, _ := s.ListMessages(context.Background())
	if len(msgs) != 3 {
		t.Fatalf("expected stored message, got %d messages", len(msgs))
	}
	want := draft
	want.ID = 3
	if diff := cmp.Diff([]model.Message{want}, tr.delivered, cmpopts.IgnoreFields(model.Message{}, "CreatedAt")); diff != "" {
		t.Errorf("delivered mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestSendDeliveryFailure(t *testing.T) {
	sender := &captureSender{}
	p := New(newSeeded(t), &fakeTransport{err: errors.New("relay refused")}, sender)

	p.RequestSend(model.Message{From: "me@me.me", To: "x@x.me"})
	p.Wait()

	evs := sender.all()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	sent := evs[0].(event.MessageSent)
	if sent.Err != "relay refused" {
		t.Errorf("expected failure reason, got %q", sent.Err)
	}
}

func TestRequestTimeout(t *testing.T) {
	sender := &captureSender{}
	p := New(&slowStore{}, nil, sender, WithTimeout(20*time.Millisecond))

	p.RequestList()
	p.Wait()

	evs := sender.all()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e, ok := evs[0].(event.Error)
	if !ok || !errors.Is(e.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %+v", evs[0])
	}
}

func TestInitializeWrapsError(t *testing.T) {
	p := New(failingInit{}, nil, &captureSender{})
	err := p.Initialize(context.Background())
	if err == nil || !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

var errBoom = errors.New("boom")

type failingInit struct{ store.Store }

func (failingInit) Initialize(context.Context) error { return errBoom }
