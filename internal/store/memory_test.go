package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nhle/mailterm/internal/model"
)

func TestMemoryStoreSeed(t *testing.T) {
	s := NewMemoryStore(true)
	ctx := context.Background()

	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize again: %v", err)
	}

	msgs, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 seeded messages, got %d", len(msgs))
	}
	if msgs[0].ID != 1 || msgs[0].From != "bob@bob.me" || msgs[1].Subject != "TPS Reports" {
		t.Errorf("unexpected seed %+v", msgs)
	}
	for _, m := range msgs {
		if m.Body != "" {
			t.Errorf("list should omit bodies, got %q", m.Body)
		}
	}
}

func TestMemoryStoreWithoutSeed(t *testing.T) {
	s := NewMemoryStore(false)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	msgs, _ := s.ListMessages(context.Background())
	if len(msgs) != 0 {
		t.Fatalf("expected empty store, got %d", len(msgs))
	}
}

func TestMemoryStoreSaveAndBody(t *testing.T) {
	s := NewMemoryStore(false)
	ctx := context.Background()

	saved, err := s.SaveMessage(ctx, model.Message{From: "me@me.me", To: "a@a.me", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if saved.ID != 1 {
		t.Fatalf("expected id 1, got %d", saved.ID)
	}

	body, err := s.MessageBody(ctx, saved.ID)
	if err != nil || body != "b" {
		t.Fatalf("MessageBody = %q, %v", body, err)
	}

	if _, err := s.MessageBody(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentSaves(t *testing.T) {
	s := NewMemoryStore(false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SaveMessage(ctx, model.Message{From: "a", To: "b"}); err != nil {
				t.Errorf("SaveMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, _ := s.ListMessages(ctx)
	if len(msgs) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(msgs))
	}
	seen := make(map[int64]bool)
	for i, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
		if i > 0 && msgs[i-1].ID >= m.ID {
			t.Fatalf("ids not ascending at %d", i)
		}
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s := NewMemoryStore(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.ListMessages(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
