package domain

import "time"

type Role string

const (
	RoleHost        Role = "host"
	RoleCoHost      Role = "cohost"
	RoleParticipant Role = "participant"
)

// Participant is one row of a meeting's attendance list. Role here is a
// cache: HostID and CoHosts on the Meeting are authoritative, and the cache
// is recomputed on every role mutation.
type Participant struct {
	UserID       UserID    `json:"userId"`
	Role         Role      `json:"role"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastJoinedAt time.Time `json:"lastJoinedAt"`
	LastLeftAt   time.Time `json:"lastLeftAt"`
}

// Meeting is the persisted record the authorization gate reads and mutates.
// It outlives any single signaling session.
type Meeting struct {
	ID           string          `json:"id"`
	RoomCode     RoomID          `json:"roomCode"`
	HostID       UserID          `json:"hostId"`
	CoHosts      map[UserID]bool `json:"coHosts"`
	Participants []Participant   `json:"participants"`
	Locked       bool            `json:"locked"`
}

// RoleOf resolves a caller's role from the meeting snapshot. Pure; the
// participant rows are never consulted, only HostID and CoHosts.
func (m *Meeting) RoleOf(uid UserID) Role {
	switch {
	case uid == m.HostID:
		return RoleHost
	case m.CoHosts[uid]:
		return RoleCoHost
	default:
		return RoleParticipant
	}
}

// IsCoHost reports whether uid currently holds co-host rights.
func (m *Meeting) IsCoHost(uid UserID) bool { return m.CoHosts[uid] }

// CoHostIDs returns the co-host set as a slice for wire snapshots.
func (m *Meeting) CoHostIDs() []UserID {
	out := make([]UserID, 0, len(m.CoHosts))
	for uid := range m.CoHosts {
		out = append(out, uid)
	}
	return out
}
