package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/mailterm/internal/model"
)

// MemoryStore keeps messages in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []model.Message
	nextID   int64
	seed     bool
	seeded   bool
}

// NewMemoryStore creates an empty store. With seed set, Initialize fills it
// with SeedMessages.
func NewMemoryStore(seed bool) *MemoryStore {
	return &MemoryStore{nextID: 1, seed: seed}
}

func (s *MemoryStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seed || s.seeded || len(s.messages) > 0 {
		return nil
	}
	for _, m := range SeedMessages() {
		s.insertLocked(m)
	}
	s.seeded = true
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.WithBody("")
	}
	return out, nil
}

func (s *MemoryStore) MessageBody(ctx context.Context, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("getting message %d: %w", id, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages {
		if m.ID == id {
			return m.Body, nil
		}
	}
	return "", fmt.Errorf("getting message %d: %w", id, ErrNotFound)
}

func (s *MemoryStore) SaveMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	if err := ctx.Err(); err != nil {
		return model.Message{}, fmt.Errorf("saving message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(msg), nil
}

func (s *MemoryStore) insertLocked(msg model.Message) model.Message {
	msg.ID = s.nextID
	s.nextID++
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages = append(s.messages, msg)
	return msg
}
