// Package protocol defines the JSON event vocabulary of the signaling channel.
// Every frame carries a "type" discriminator; the rest of the shape depends on
// the kind. Negotiation payloads are opaque: the server tags and forwards them
// verbatim, it never parses them.
package protocol

import (
	"encoding/json"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type Kind string

// Inbound kinds.
const (
	KindJoin        Kind = "join-meeting"
	KindLeave       Kind = "leave-meeting"
	KindOffer       Kind = "offer"
	KindAnswer      Kind = "answer"
	KindCandidate   Kind = "ice-candidate"
	KindUpdateState Kind = "update-participant-state"
	KindPing        Kind = "ping"
)

// Outbound kinds. Offer/answer/candidate are reused for delivery, tagged with
// the sender's identity.
const (
	KindParticipantJoined       Kind = "participant-joined"
	KindExistingParticipants    Kind = "existing-participants"
	KindParticipantLeft         Kind = "participant-left"
	KindParticipantStateChanged Kind = "participant-state-changed"
	KindPong                    Kind = "pong"
)

// Envelope is the minimal frame used to dispatch on type.
type Envelope struct {
	Type Kind `json:"type"`
}

type JoinRequest struct {
	Type            Kind                 `json:"type"`
	MeetingID       domain.RoomID        `json:"meetingId" validate:"required"`
	ParticipantID   domain.ParticipantID `json:"participantId" validate:"required"`
	ParticipantName string               `json:"participantName" validate:"required,max=64"`
	IsHost          bool                 `json:"isHost"`
}

type LeaveRequest struct {
	Type          Kind                 `json:"type"`
	MeetingID     domain.RoomID        `json:"meetingId" validate:"required"`
	ParticipantID domain.ParticipantID `json:"participantId" validate:"required"`
}

// RelayRequest targets one participant with an opaque negotiation payload.
type RelayRequest struct {
	Type            Kind                 `json:"type"`
	MeetingID       domain.RoomID        `json:"meetingId"`
	ToParticipantID domain.ParticipantID `json:"toParticipantId" validate:"required"`
	Payload         json.RawMessage      `json:"payload" validate:"required"`
}

type StateChangeRequest struct {
	Type          Kind                 `json:"type"`
	MeetingID     domain.RoomID        `json:"meetingId" validate:"required"`
	ParticipantID domain.ParticipantID `json:"participantId" validate:"required"`
	IsAudioMuted  bool                 `json:"isAudioMuted"`
	IsVideoOff    bool                 `json:"isVideoOff"`
}

type ParticipantJoined struct {
	Type Kind `json:"type"`
	domain.Participant
}

type ExistingParticipants struct {
	Type         Kind                 `json:"type"`
	Participants []domain.Participant `json:"participants"`
}

type ParticipantLeft struct {
	Type            Kind                 `json:"type"`
	ParticipantID   domain.ParticipantID `json:"participantId"`
	ParticipantName string               `json:"participantName"`
}

// RelayDelivery is what the target connection receives: the untouched payload
// plus the resolved sender identity.
type RelayDelivery struct {
	Type                Kind                 `json:"type"`
	Payload             json.RawMessage      `json:"payload"`
	FromParticipantID   domain.ParticipantID `json:"fromParticipantId"`
	FromParticipantName string               `json:"fromParticipantName,omitempty"`
}

type ParticipantStateChanged struct {
	Type          Kind                 `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	IsAudioMuted  bool                 `json:"isAudioMuted"`
	IsVideoOff    bool                 `json:"isVideoOff"`
}

// Encode marshals an outbound event into a transport frame.
func Encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
