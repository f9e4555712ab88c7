// Package store persists destruction events and the set of processed
// messages in a local SQLite database, so repeated runs do not emit
// duplicate rows for messages the mailbox still reports as unseen.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/splee/ribbit/internal/event"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveEvents inserts a batch of events attributed to one source
// message. Each event gets a fresh UUID row ID.
func (s *SQLiteStore) SaveEvents(
	ctx context.Context, messageID string, events []event.Destruction,
) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO events (
			id, message_id, owner, destroyer, type, time, lat, lng, count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		_, err = stmt.ExecContext(ctx,
			uuid.New().String(), messageID,
			e.Owner, e.Destroyer, e.Type, e.Time,
			e.Lat, e.Lng, e.Count,
		)
		if err != nil {
			return fmt.Errorf("inserting event for %s: %w", e.Owner, err)
		}
	}

	return tx.Commit()
}

// ListEvents retrieves stored events matching the filter, oldest first.
func (s *SQLiteStore) ListEvents(
	ctx context.Context, filter EventFilter,
) ([]event.Destruction, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Owner != "" {
		conditions = append(conditions, "owner = ?")
		args = append(args, filter.Owner)
	}

	query := "SELECT owner, destroyer, type, time, lat, lng, count FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY time ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []event.Destruction
	for rows.Next() {
		var (
			e event.Destruction
			t time.Time
		)
		if err := rows.Scan(
			&e.Owner, &e.Destroyer, &e.Type, &t, &e.Lat, &e.Lng, &e.Count,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e.Time = t
		events = append(events, e)
	}

	return events, rows.Err()
}

// IsProcessed reports whether the given Message-ID was already
// processed by a previous run. An empty id is never processed; the
// dedup guarantee only holds for messages that carry the header.
func (s *SQLiteStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}

	var found string
	err := s.db.GetContext(
		ctx, &found,
		"SELECT message_id FROM processed_messages WHERE message_id = ?",
		messageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking processed message %s: %w", messageID, err)
	}

	return true, nil
}

// MarkProcessed records that a message has been fully handled.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}

	_, err := s.db.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO processed_messages (message_id, processed_at) VALUES (?, ?)",
		messageID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("marking message %s processed: %w", messageID, err)
	}

	return nil
}
