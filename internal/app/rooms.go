package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Rooms holds the notification groups: which connections currently receive a
// room's presence events. Derived state only; the directory is the system of
// record for who has ever joined.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[core.ConnID]core.SignalConnection
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[domain.RoomID]map[core.ConnID]core.SignalConnection)}
}

func (r *Rooms) Add(roomID domain.RoomID, cid core.ConnID, sig core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[core.ConnID]core.SignalConnection)
		r.rooms[roomID] = room
	}
	room[cid] = sig
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("conn", string(cid)).Int("members", len(room)).Msg("member added")
}

// Remove drops cid from the room group and deletes the group when empty.
func (r *Rooms) Remove(roomID domain.RoomID, cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(room, cid)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("conn", string(cid)).Msg("member removed")
}

func (r *Rooms) MemberCount(roomID domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Broadcast sends a frame to every connection in the room except exclude.
// Sends never block; slow members are reported back for the policy to act on.
func (r *Rooms) Broadcast(roomID domain.RoomID, exclude core.ConnID, f core.Frame) core.PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := core.PublishResult{}
	for cid, sig := range r.rooms[roomID] {
		if cid == exclude {
			continue
		}
		if err := sig.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
