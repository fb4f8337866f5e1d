package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailterm/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db   *sqlx.DB
	seed bool
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and
// enables WAL mode. The schema is created by Initialize.
func NewSQLiteStore(dbPath string, seed bool) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serialises writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, seed: seed}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Initialize applies outstanding migrations and, when seeding is enabled,
// inserts the demo messages into an empty table.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if !s.seed {
		return nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM messages"); err != nil {
		return fmt.Errorf("counting messages: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, m := range SeedMessages() {
		if _, err := s.SaveMessage(ctx, m); err != nil {
			return fmt.Errorf("seeding messages: %w", err)
		}
	}
	return nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	currentVersion, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

func (s *SQLiteStore) schemaVersion(ctx context.Context) (int, error) {
	var tableCount int
	err := s.db.GetContext(ctx,
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return 0, fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount == 0 {
		return 0, nil
	}

	var version int
	err = s.db.GetContext(ctx, &version, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// ListMessages returns message metadata without bodies, ascending by id.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.SelectContext(ctx, &msgs, `
		SELECT id, from_addr, to_addr, subject, created_at,
			COALESCE(remote_id, '') AS remote_id
		FROM messages
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// MessageBody returns the body of the message with the given id.
func (s *SQLiteStore) MessageBody(ctx context.Context, id int64) (string, error) {
	var body string
	err := s.db.GetContext(ctx, &body, "SELECT body FROM messages WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("getting message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting message %d: %w", id, err)
	}
	return body, nil
}

// SaveMessage inserts msg and returns it with the id SQLite assigned.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (from_addr, to_addr, subject, body, created_at, remote_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.From, msg.To, msg.Subject, msg.Body, msg.CreatedAt.UTC(), nullString(msg.RemoteID),
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("saving message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("reading inserted id: %w", err)
	}
	msg.ID = id
	return msg, nil
}

// ImportMessages inserts messages fetched from a remote mailbox, skipping
// any whose RemoteID is already stored. It returns how many were added.
func (s *SQLiteStore) ImportMessages(ctx context.Context, msgs []model.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR IGNORE INTO messages (
			from_addr, to_addr, subject, body, created_at, remote_id
		) VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("preparing import statement: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx,
			m.From, m.To, m.Subject, m.Body, m.CreatedAt.UTC(), nullString(m.RemoteID),
		)
		if err != nil {
			return 0, fmt.Errorf("importing message %s: %w", m.RemoteID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reading affected rows: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return added, nil
}

// nullString maps "" to NULL so the unique remote_id index only applies to
// imported messages.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
