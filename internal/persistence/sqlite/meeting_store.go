package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/persistence"
)

// Create stores a new meeting with its co-host set.
func (s *Storage) Create(ctx context.Context, m *domain.Meeting) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meetings (id, room_code, host_id, locked) VALUES (?, ?, ?, ?)`,
			m.ID, string(m.RoomCode), string(m.HostID), boolToInt(m.Locked))
		if err != nil {
			return fmt.Errorf("sqlite: create meeting: %w", err)
		}
		for uid := range m.CoHosts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO meeting_cohosts (meeting_id, user_id) VALUES (?, ?)`,
				m.ID, string(uid)); err != nil {
				return fmt.Errorf("sqlite: create cohost: %w", err)
			}
		}
		return nil
	})
}

func (s *Storage) Get(ctx context.Context, id string) (*domain.Meeting, error) {
	return s.getWhere(ctx, `id = ?`, id)
}

func (s *Storage) GetByRoomCode(ctx context.Context, code domain.RoomID) (*domain.Meeting, error) {
	return s.getWhere(ctx, `room_code = ?`, string(code))
}

func (s *Storage) getWhere(ctx context.Context, cond string, arg any) (*domain.Meeting, error) {
	m := &domain.Meeting{CoHosts: make(map[domain.UserID]bool)}
	var locked int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_code, host_id, locked FROM meetings WHERE `+cond, arg).
		Scan(&m.ID, &m.RoomCode, &m.HostID, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get meeting: %w", err)
	}
	m.Locked = locked != 0

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM meeting_cohosts WHERE meeting_id = ?`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get cohosts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("sqlite: scan cohost: %w", err)
		}
		m.CoHosts[domain.UserID(uid)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: cohost rows: %w", err)
	}

	prows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role, joined_at, last_joined_at, last_left_at
		 FROM meeting_participants WHERE meeting_id = ? ORDER BY joined_at`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get participants: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p domain.Participant
		var uid, role string
		var lastLeft sql.NullTime
		if err := prows.Scan(&uid, &role, &p.JoinedAt, &p.LastJoinedAt, &lastLeft); err != nil {
			return nil, fmt.Errorf("sqlite: scan participant: %w", err)
		}
		p.UserID = domain.UserID(uid)
		p.Role = domain.Role(role)
		if lastLeft.Valid {
			p.LastLeftAt = lastLeft.Time
		}
		m.Participants = append(m.Participants, p)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: participant rows: %w", err)
	}
	return m, nil
}

func (s *Storage) SetLocked(ctx context.Context, id string, locked bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET locked = ? WHERE id = ?`, boolToInt(locked), id)
	if err != nil {
		return fmt.Errorf("sqlite: set locked: %w", err)
	}
	return requireRow(res)
}

// AddCoHost inserts the co-host row and refreshes the cached participant role
// inside one transaction, so the cache can never be observed diverged.
func (s *Storage) AddCoHost(ctx context.Context, id string, uid domain.UserID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := meetingExists(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO meeting_cohosts (meeting_id, user_id) VALUES (?, ?)`,
			id, string(uid)); err != nil {
			return fmt.Errorf("sqlite: add cohost: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE meeting_participants SET role = ? WHERE meeting_id = ? AND user_id = ?`,
			string(domain.RoleCoHost), id, string(uid)); err != nil {
			return fmt.Errorf("sqlite: refresh role cache: %w", err)
		}
		return nil
	})
}

func (s *Storage) RemoveCoHost(ctx context.Context, id string, uid domain.UserID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := meetingExists(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM meeting_cohosts WHERE meeting_id = ? AND user_id = ?`,
			id, string(uid)); err != nil {
			return fmt.Errorf("sqlite: remove cohost: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE meeting_participants SET role = ? WHERE meeting_id = ? AND user_id = ?`,
			string(domain.RoleParticipant), id, string(uid)); err != nil {
			return fmt.Errorf("sqlite: refresh role cache: %w", err)
		}
		return nil
	})
}

func (s *Storage) RecordJoin(ctx context.Context, id string, uid domain.UserID, role domain.Role, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := meetingExists(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meeting_participants (meeting_id, user_id, role, joined_at, last_joined_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (meeting_id, user_id)
			 DO UPDATE SET role = excluded.role, last_joined_at = excluded.last_joined_at`,
			id, string(uid), string(role), at, at)
		if err != nil {
			return fmt.Errorf("sqlite: record join: %w", err)
		}
		return nil
	})
}

func (s *Storage) RecordLeave(ctx context.Context, id string, uid domain.UserID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE meeting_participants SET last_left_at = ? WHERE meeting_id = ? AND user_id = ?`,
		at, id, string(uid))
	if err != nil {
		return fmt.Errorf("sqlite: record leave: %w", err)
	}
	return nil
}

func meetingExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM meetings WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: meeting exists: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
