package domain

import "testing"

func TestRoleOf(t *testing.T) {
	m := &Meeting{
		ID:       "m1",
		RoomCode: "r1",
		HostID:   "alice",
		CoHosts:  map[UserID]bool{"bob": true},
	}

	cases := []struct {
		uid  UserID
		want Role
	}{
		{"alice", RoleHost},
		{"bob", RoleCoHost},
		{"carol", RoleParticipant},
		{"", RoleParticipant},
	}
	for _, tc := range cases {
		if got := m.RoleOf(tc.uid); got != tc.want {
			t.Errorf("RoleOf(%q) = %s, want %s", tc.uid, got, tc.want)
		}
	}
}

func TestRoleOfHostBeatsCoHostMembership(t *testing.T) {
	// Even if the host somehow ends up in the cohost set, host wins.
	m := &Meeting{HostID: "alice", CoHosts: map[UserID]bool{"alice": true}}
	if got := m.RoleOf("alice"); got != RoleHost {
		t.Fatalf("host must resolve to host, got %s", got)
	}
}

func TestRoleOfIgnoresParticipantCache(t *testing.T) {
	// The cached role on the participant row is presentation data; role
	// resolution reads only HostID and CoHosts.
	m := &Meeting{
		HostID:  "alice",
		CoHosts: map[UserID]bool{},
		Participants: []Participant{
			{UserID: "dave", Role: RoleCoHost},
		},
	}
	if got := m.RoleOf("dave"); got != RoleParticipant {
		t.Fatalf("stale cache must not grant a role, got %s", got)
	}
}

func TestCoHostIDs(t *testing.T) {
	m := &Meeting{CoHosts: map[UserID]bool{"bob": true, "carol": true}}
	ids := m.CoHostIDs()
	if len(ids) != 2 {
		t.Fatalf("want 2 cohost ids, got %v", ids)
	}
	seen := map[UserID]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["bob"] || !seen["carol"] {
		t.Fatalf("want bob and carol, got %v", ids)
	}
}

func TestNewIdentity(t *testing.T) {
	ident, err := NewIdentity("u1", "Ann")
	if err != nil {
		t.Fatalf("valid identity: %v", err)
	}
	if ident.UserID != "u1" || ident.DisplayName != "Ann" {
		t.Fatalf("identity fields lost: %+v", ident)
	}

	if _, err := NewIdentity("", "Ann"); err == nil {
		t.Fatal("empty user id must be rejected")
	}
}
