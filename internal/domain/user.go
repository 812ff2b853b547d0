// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxDisplayNameLen = 64

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

// Identity is what the handshake token resolves to. A nil *Identity means
// the connection is anonymous: it may signal but is never activity-logged.
type Identity struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

func NewIdentity(userID UserID, displayName string) (*Identity, error) {
	if userID == "" {
		return nil, errors.New("user id empty")
	}
	if displayName == "" {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &Identity{UserID: userID, DisplayName: displayName}, nil
}
