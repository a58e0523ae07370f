package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/directory"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/dkeye/Meet/internal/protocol"
)

const defaultDirectoryTimeout = 3 * time.Second

// Orchestrator drives the join/leave/relay protocol over the registry, the
// room groups and the directory. Directory writes on the presence path are
// best-effort: failures are logged, never retried and never fatal to a
// connection handler. No lock spans the bind, the upsert and the broadcast;
// the transient divergence between registry and directory is deliberate.
type Orchestrator struct {
	Registry  *Registry
	Rooms     *Rooms
	Directory directory.Directory
	Relayer   *Relay
	Policy    Policy
	Metrics   *metrics.Metrics

	// DirectoryTimeout bounds each directory call; zero means the default.
	DirectoryTimeout time.Duration
}

// Join runs the join sequence: bind, directory upsert, room add, notify the
// room, then deliver the filtered online snapshot to the joiner only.
func (o *Orchestrator) Join(ctx context.Context, cid core.ConnID, sig core.SignalConnection, roomID domain.RoomID, p domain.Participant) {
	// A join on an already bound connection supersedes the old binding; the
	// old room must stop notifying this connection first.
	if prev, prevRoom, ok := o.Registry.Lookup(cid); ok && prevRoom != roomID {
		o.broadcast(prevRoom, cid, protocol.ParticipantLeft{
			Type:            protocol.KindParticipantLeft,
			ParticipantID:   prev.ID,
			ParticipantName: prev.Name,
		})
		o.Rooms.Remove(prevRoom, cid)
		o.markOfflineAsync(prevRoom, prev.ID)
	}

	o.Registry.Bind(cid, roomID, p, sig)

	dirCtx, cancel := context.WithTimeout(ctx, o.directoryTimeout())
	err := o.Directory.UpsertParticipant(dirCtx, roomID, domain.Record{
		ParticipantID: p.ID,
		Name:          p.Name,
		ConnectionID:  string(cid),
		JoinedAt:      time.Now().UnixMilli(),
		IsOnline:      true,
		IsHost:        p.IsHost,
	})
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Str("participant", string(p.ID)).Msg("directory upsert failed, presence state may lag")
	}

	o.Rooms.Add(roomID, cid, sig)

	o.broadcast(roomID, cid, protocol.ParticipantJoined{
		Type:        protocol.KindParticipantJoined,
		Participant: p,
	})

	o.sendSnapshot(ctx, sig, roomID, p.ID)
	o.Metrics.Joins.Inc()
	log.Info().Str("module", "app.orchestrator").Str("participant", string(p.ID)).Str("room", string(roomID)).Bool("host", p.IsHost).Msg("participant joined")
}

// sendSnapshot delivers the room's online participants, minus the joiner, to
// the joining connection only. A directory read failure degrades to an empty
// list; the snapshot is best-effort by contract.
func (o *Orchestrator) sendSnapshot(ctx context.Context, sig core.SignalConnection, roomID domain.RoomID, self domain.ParticipantID) {
	dirCtx, cancel := context.WithTimeout(ctx, o.directoryTimeout())
	defer cancel()

	existing := make([]domain.Participant, 0)
	records, err := o.Directory.ListOnlineParticipants(dirCtx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Str("room", string(roomID)).Msg("directory snapshot failed, sending empty list")
	}
	for _, rec := range records {
		if rec.ParticipantID == self || !rec.IsOnline {
			continue
		}
		existing = append(existing, domain.Participant{ID: rec.ParticipantID, Name: rec.Name, IsHost: rec.IsHost})
	}

	frame, err := protocol.Encode(protocol.ExistingParticipants{
		Type:         protocol.KindExistingParticipants,
		Participants: existing,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode snapshot")
		return
	}
	if err := sig.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Msg("snapshot dropped on backpressure")
	}
}

// Leave handles an explicit leave-meeting request.
func (o *Orchestrator) Leave(cid core.ConnID) {
	o.depart(cid, "leave")
}

// OnDisconnect handles transport-level termination with no leave message.
// Identity and room are reconstructed from the registry binding, keeping the
// departure broadcast room-scoped.
func (o *Orchestrator) OnDisconnect(cid core.ConnID) {
	o.depart(cid, "disconnect")
}

func (o *Orchestrator) depart(cid core.ConnID, reason string) {
	p, roomID, ok := o.Registry.Lookup(cid)
	if !ok {
		log.Debug().Str("module", "app.orchestrator").Str("conn", string(cid)).Str("reason", reason).Msg("departure for unknown connection")
		return
	}

	o.broadcast(roomID, cid, protocol.ParticipantLeft{
		Type:            protocol.KindParticipantLeft,
		ParticipantID:   p.ID,
		ParticipantName: p.Name,
	})

	o.markOfflineAsync(roomID, p.ID)
	o.Rooms.Remove(roomID, cid)
	o.Registry.Unbind(cid)
	o.Metrics.Leaves.Inc()
	log.Info().Str("module", "app.orchestrator").Str("participant", string(p.ID)).Str("room", string(roomID)).Str("reason", reason).Msg("participant left")
}

// RelayFrom forwards an opaque negotiation payload from a connection to a
// participant. The sender gets no acknowledgment either way.
func (o *Orchestrator) RelayFrom(kind protocol.Kind, fromCID core.ConnID, to domain.ParticipantID, payload json.RawMessage) {
	from, _, ok := o.Registry.Lookup(fromCID)
	if !ok {
		log.Warn().Str("module", "app.orchestrator").Str("kind", string(kind)).Str("conn", string(fromCID)).Msg("relay from unbound connection, dropping")
		return
	}
	o.Relayer.Forward(kind, from, to, payload)
}

// UpdateState fans out ephemeral mute/camera state to the room. Nothing is
// persisted; the directory does not store UI state.
func (o *Orchestrator) UpdateState(cid core.ConnID, isAudioMuted, isVideoOff bool) {
	p, roomID, ok := o.Registry.Lookup(cid)
	if !ok {
		return
	}
	o.broadcast(roomID, cid, protocol.ParticipantStateChanged{
		Type:          protocol.KindParticipantStateChanged,
		ParticipantID: p.ID,
		IsAudioMuted:  isAudioMuted,
		IsVideoOff:    isVideoOff,
	})
}

func (o *Orchestrator) broadcast(roomID domain.RoomID, exclude core.ConnID, event any) {
	frame, err := protocol.Encode(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode broadcast event")
		return
	}
	res := o.Rooms.Broadcast(roomID, exclude, frame)
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		o.Metrics.BroadcastDropped.Inc()
		switch o.Policy.OnBackPressure(roomID, slow) {
		case KickMember:
			o.kick(slow)
		case MarkSlow, DropFrame, NoAction:
		}
	}
}

func (o *Orchestrator) kick(cid core.ConnID) {
	log.Warn().Str("module", "app.orchestrator").Str("conn", string(cid)).Msg("kicking slow member")
	if sig, ok := o.Registry.SignalOf(cid); ok {
		defer sig.Close()
	}
	o.depart(cid, "kick")
}

func (o *Orchestrator) markOfflineAsync(roomID domain.RoomID, pid domain.ParticipantID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.directoryTimeout())
		defer cancel()
		if err := o.Directory.MarkOffline(ctx, roomID, pid); err != nil {
			log.Warn().Err(err).Str("module", "app.orchestrator").Str("participant", string(pid)).Msg("directory offline-marking failed")
		}
	}()
}

func (o *Orchestrator) directoryTimeout() time.Duration {
	if o.DirectoryTimeout > 0 {
		return o.DirectoryTimeout
	}
	return defaultDirectoryTimeout
}
