package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avoronin/Huddle/internal/domain"
)

// SQLiteLog persists history rows in the activity_sessions table owned by
// the shared storage schema.
type SQLiteLog struct {
	db *sql.DB
}

func NewSQLiteLog(db *sql.DB) *SQLiteLog {
	return &SQLiteLog{db: db}
}

func (l *SQLiteLog) RecordJoin(ctx context.Context, user domain.UserID, room domain.RoomID) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activity_sessions (id, user_id, room_code, joined_at) VALUES (?, ?, ?, ?)`,
		id, string(user), string(room), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("activity: record join: %w", err)
	}
	return id, nil
}

func (l *SQLiteLog) RecordLeave(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE activity_sessions SET left_at = ? WHERE id = ?`,
		time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("activity: record leave: %w", err)
	}
	return nil
}
