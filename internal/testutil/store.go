// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nhle/mailterm/internal/store"
)

// NewTestStore creates an initialized SQLiteStore in a temporary directory.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, seed bool) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "mail.db"), seed)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initializing test store: %v", err)
	}

	return s
}
