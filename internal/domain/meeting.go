package domain

import "math/rand/v2"

// Meeting is the durable meta record created by the lifecycle API.
type Meeting struct {
	ID        RoomID        `json:"meetingId"`
	HostID    ParticipantID `json:"hostId"`
	HostName  string        `json:"hostName"`
	StartTime int64         `json:"startTime"` // unix milliseconds
	IsActive  bool          `json:"isActive"`
}

// NewMeetingID returns a random 9-digit room identifier.
func NewMeetingID() RoomID {
	const digits = "0123456789"
	b := make([]byte, 9)
	b[0] = digits[1+rand.IntN(9)] // no leading zero
	for i := 1; i < len(b); i++ {
		b[i] = digits[rand.IntN(10)]
	}
	return RoomID(b)
}
