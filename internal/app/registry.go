package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type binding struct {
	Participant domain.Participant
	Room        domain.RoomID
	Signal      core.SignalConnection
}

// Registry is the process-local map from live connection to bound participant.
// It also tracks the room of each binding so a disconnect broadcast can stay
// room-scoped instead of going global.
type Registry struct {
	mu            sync.RWMutex
	conns         map[core.ConnID]*binding
	byParticipant map[domain.ParticipantID]core.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		conns:         make(map[core.ConnID]*binding),
		byParticipant: make(map[domain.ParticipantID]core.ConnID),
	}
}

// Bind records the association, overwriting any prior entry for cid. A second
// join under the same participant ID repoints the reverse index at the new
// connection (last-join-wins); the orphaned old entry stays until its own
// disconnect is processed.
func (r *Registry) Bind(cid core.ConnID, room domain.RoomID, p domain.Participant, sig core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A re-bind under a new participant ID must not leave the old ID
	// resolving to this connection.
	if old, ok := r.conns[cid]; ok && r.byParticipant[old.Participant.ID] == cid {
		delete(r.byParticipant, old.Participant.ID)
	}
	r.conns[cid] = &binding{Participant: p, Room: room, Signal: sig}
	r.byParticipant[p.ID] = cid
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("participant", string(p.ID)).Str("room", string(room)).Msg("bound connection")
}

func (r *Registry) Lookup(cid core.ConnID) (domain.Participant, domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[cid]
	if !ok {
		return domain.Participant{}, "", false
	}
	return b.Participant, b.Room, true
}

// ConnOfParticipant resolves a participant to its current live connection.
func (r *Registry) ConnOfParticipant(pid domain.ParticipantID) (core.ConnID, core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.byParticipant[pid]
	if !ok {
		return "", nil, false
	}
	b, ok := r.conns[cid]
	if !ok {
		return "", nil, false
	}
	return cid, b.Signal, true
}

func (r *Registry) SignalOf(cid core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[cid]
	if !ok {
		return nil, false
	}
	return b.Signal, true
}

// Unbind removes the entry for cid, a no-op if absent. The reverse index is
// cleared only while it still points at cid, so the disconnect of an orphaned
// old connection never clobbers a newer binding for the same participant.
func (r *Registry) Unbind(cid core.ConnID) (domain.Participant, domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[cid]
	if !ok {
		return domain.Participant{}, "", false
	}
	delete(r.conns, cid)
	if r.byParticipant[b.Participant.ID] == cid {
		delete(r.byParticipant, b.Participant.ID)
	}
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("participant", string(b.Participant.ID)).Msg("unbound connection")
	return b.Participant, b.Room, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
