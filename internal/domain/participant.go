// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxNameLen = 64

var (
	ErrNameEmpty   = errors.New("participant name empty")
	ErrNameTooLong = errors.New("participant name too long")
)

type (
	// RoomID identifies a meeting; stable for the meeting's lifetime.
	RoomID string
	// ParticipantID is caller-supplied and stable across reconnects.
	ParticipantID string
)

// Participant is the identity bound to a live connection.
type Participant struct {
	ID     ParticipantID `json:"participantId"`
	Name   string        `json:"participantName"`
	IsHost bool          `json:"isHost"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(id ParticipantID, name string, isHost bool) (Participant, error) {
	if name == "" {
		return Participant{}, ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return Participant{}, ErrNameTooLong
	}
	return Participant{ID: id, Name: name, IsHost: isHost}, nil
}

// Record is the durable directory entry for a participant in a room.
// Records are never deleted, only updated; offline participants stay
// listed with IsOnline=false as an audit trail.
type Record struct {
	ParticipantID ParticipantID `json:"participantId"`
	Name          string        `json:"name"`
	ConnectionID  string        `json:"connectionId,omitempty"`
	JoinedAt      int64         `json:"joinedAt"` // unix milliseconds
	IsOnline      bool          `json:"isOnline"`
	IsHost        bool          `json:"isHost"`
}
