// Package sqlite implements the persistence contracts over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Storage wraps the database handle shared by the meeting store and the
// activity log.
type Storage struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and initializes the
// schema. WAL keeps concurrent gated actions from blocking the read path.
func Open(ctx context.Context, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = "./data/huddle.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("module", "persistence.sqlite").Str("path", dbPath).Msg("storage ready")
	return s, nil
}

func (s *Storage) Close() error { return s.db.Close() }

// DB exposes the handle for collaborators sharing the schema (activity log).
func (s *Storage) DB() *sql.DB { return s.db }

func (s *Storage) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		room_code TEXT UNIQUE NOT NULL,
		host_id TEXT NOT NULL,
		locked INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS meeting_cohosts (
		meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		PRIMARY KEY (meeting_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS meeting_participants (
		meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		joined_at DATETIME NOT NULL,
		last_joined_at DATETIME NOT NULL,
		last_left_at DATETIME,
		PRIMARY KEY (meeting_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS activity_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		room_code TEXT NOT NULL,
		joined_at DATETIME NOT NULL,
		left_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_room_code ON meetings(room_code);
	CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_sessions(user_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: init schema: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Str("module", "persistence.sqlite").Msg("rollback")
		}
		return err
	}
	return tx.Commit()
}
