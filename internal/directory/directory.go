// Package directory is the durable participant store shared across server
// processes. The presence path treats every call as fallible and best-effort;
// the meeting lifecycle API surfaces errors end to end.
package directory

import (
	"context"
	"errors"

	"github.com/dkeye/Meet/internal/domain"
)

var ErrMeetingNotFound = errors.New("meeting not found")

// Directory is the narrow contract the core consumes. Writers to the same
// participant resolve last-write-wins; no transaction spans the registry
// bind, the upsert and the presence broadcast.
type Directory interface {
	// UpsertParticipant writes the full record for (roomID, participantID).
	// The original joined-at timestamp is preserved on re-join.
	UpsertParticipant(ctx context.Context, roomID domain.RoomID, rec domain.Record) error
	// MarkOffline flips isOnline to false; the record is retained.
	MarkOffline(ctx context.Context, roomID domain.RoomID, pid domain.ParticipantID) error
	// ListOnlineParticipants returns an unordered point-in-time snapshot.
	ListOnlineParticipants(ctx context.Context, roomID domain.RoomID) ([]domain.Record, error)

	CreateMeeting(ctx context.Context, m domain.Meeting) error
	GetMeeting(ctx context.Context, roomID domain.RoomID) (domain.Meeting, error)
	// ListParticipants returns every record for the room, online or not.
	ListParticipants(ctx context.Context, roomID domain.RoomID) ([]domain.Record, error)

	Ping(ctx context.Context) error
	Close() error
}
