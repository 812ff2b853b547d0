package domain

// RoomID is the signaling-level grouping key. It equals the meeting's room
// code, so a client can join straight from a meeting invite.
type RoomID string
