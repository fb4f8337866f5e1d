package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/store"
	"github.com/nhle/mailterm/internal/testutil"
)

var ignoreTimes = cmpopts.IgnoreFields(model.Message{}, "CreatedAt")

func TestSQLiteSeedsEmptyStore(t *testing.T) {
	s := testutil.NewTestStore(t, true)
	ctx := context.Background()

	got, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	want := []model.Message{
		{ID: 1, From: "bob@bob.me", To: "me@me.me", Subject: "Hi"},
		{ID: 2, From: "alice@alice.me", To: "me@me.me", Subject: "TPS Reports"},
	}
	if diff := cmp.Diff(want, got, ignoreTimes); diff != "" {
		t.Errorf("ListMessages mismatch (-want +got):\n%s", diff)
	}

	body, err := s.MessageBody(ctx, 2)
	if err != nil {
		t.Fatalf("MessageBody: %v", err)
	}
	if body != "Hello there" {
		t.Errorf("expected seeded body, got %q", body)
	}
}

func TestSQLiteInitializeIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mail.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s, err := store.NewSQLiteStore(dbPath, true)
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		if err := s.Initialize(ctx); err != nil {
			t.Fatalf("Initialize #%d: %v", i, err)
		}
		if err := s.Initialize(ctx); err != nil {
			t.Fatalf("second Initialize #%d: %v", i, err)
		}
		msgs, err := s.ListMessages(ctx)
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages after reopen #%d, got %d", i, len(msgs))
		}
		s.Close()
	}
}

func TestSQLiteSaveAssignsIncreasingIDs(t *testing.T) {
	s := testutil.NewTestStore(t, false)
	ctx := context.Background()

	first, err := s.SaveMessage(ctx, model.Message{From: "me@me.me", To: "a@a.me", Subject: "one", Body: "1"})
	if err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	second, err := s.SaveMessage(ctx, model.Message{From: "me@me.me", To: "b@b.me", Subject: "two", Body: "2\nlines"})
	if err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if first.ID <= 0 || second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	body, err := s.MessageBody(ctx, second.ID)
	if err != nil {
		t.Fatalf("MessageBody: %v", err)
	}
	if body != "2\nlines" {
		t.Errorf("body = %q", body)
	}

	msgs, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Fatalf("unexpected list %+v", msgs)
	}
	if msgs[1].Body != "" {
		t.Errorf("list should not carry bodies, got %q", msgs[1].Body)
	}
}

func TestSQLiteMessageBodyNotFound(t *testing.T) {
	s := testutil.NewTestStore(t, false)

	_, err := s.MessageBody(context.Background(), 42)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteImportDeduplicatesByRemoteID(t *testing.T) {
	s := testutil.NewTestStore(t, false)
	ctx := context.Background()

	batch := []model.Message{
		{From: "x@x.me", To: "me@me.me", Subject: "a", Body: "A", RemoteID: "INBOX:1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{From: "y@y.me", To: "me@me.me", Subject: "b", Body: "B", RemoteID: "INBOX:2"},
	}
	added, err := s.ImportMessages(ctx, batch)
	if err != nil {
		t.Fatalf("ImportMessages: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	batch = append(batch, model.Message{From: "z@z.me", To: "me@me.me", Subject: "c", RemoteID: "INBOX:3"})
	added, err = s.ImportMessages(ctx, batch)
	if err != nil {
		t.Fatalf("ImportMessages again: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected only the new message added, got %d", added)
	}

	// Local messages have no remote id and never collide.
	for i := 0; i < 2; i++ {
		if _, err := s.SaveMessage(ctx, model.Message{From: "me@me.me", To: "q@q.me"}); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	msgs, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[0].RemoteID != "INBOX:1" || msgs[4].RemoteID != "" {
		t.Errorf("unexpected remote ids %q, %q", msgs[0].RemoteID, msgs[4].RemoteID)
	}
}
