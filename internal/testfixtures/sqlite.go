// Package testfixtures holds shared helpers for integration-style tests.
package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/avoronin/Huddle/internal/persistence"
	"github.com/avoronin/Huddle/internal/persistence/sqlite"
)

// SQLiteHarness provides a meeting store backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Meetings persistence.MeetingStore
	Storage  *sqlite.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary database file
// with the schema applied. A cleanup callback is registered with tb, so
// calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "huddle.db")

	storage, err := sqlite.Open(context.Background(), path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Meetings: storage,
		Storage:  storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
