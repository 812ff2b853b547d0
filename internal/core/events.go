package core

import "encoding/json"

// EventType is the closed set of signaling events. The dispatch switch in the
// adapter and the relay both work off this enum, so the wire contract stays
// statically checkable.
type EventType string

const (
	EventJoin            EventType = "join"
	EventLeave           EventType = "leave"
	EventExistingMembers EventType = "existing-members"
	EventMemberJoined    EventType = "member-joined"
	EventMemberLeft      EventType = "member-left"
	EventOffer           EventType = "offer"
	EventAnswer          EventType = "answer"
	EventICECandidate    EventType = "ice-candidate"
	EventChatMessage     EventType = "chat-message"
	EventVideoState      EventType = "video-state"
	EventLocked          EventType = "meeting-locked"
	EventUnlocked        EventType = "meeting-unlocked"
	EventRolesUpdated    EventType = "meeting-roles-updated"
	EventKicked          EventType = "meeting-kicked"
	EventMuteAll         EventType = "mute-all"
	EventLock            EventType = "lock"
	EventUnlock          EventType = "unlock"
	EventAssignCoHost    EventType = "assign-cohost"
	EventRemoveCoHost    EventType = "remove-cohost"
	EventKick            EventType = "kick"
	EventPing            EventType = "ping"
	EventPong            EventType = "pong"
	EventError           EventType = "error"
)

// Envelope is the outer shape of every signaling frame. Sender is attached by
// the relay on peer-to-peer forwards; clients never set it themselves.
type Envelope struct {
	Type    EventType       `json:"type"`
	Sender  ConnID          `json:"sender,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEvent marshals a typed payload into a wire frame.
func EncodeEvent(t EventType, sender ConnID, payload any) (Frame, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: t, Sender: sender, Payload: raw})
}
