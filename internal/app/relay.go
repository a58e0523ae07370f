package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/dkeye/Meet/internal/protocol"
)

// Relay resolves a target participant to its live connection and forwards an
// opaque negotiation payload there, tagged with the sender's identity. The
// payload is never parsed or mutated.
type Relay struct {
	Registry *Registry
	Metrics  *metrics.Metrics
}

// Forward delivers payload to the target's connection. An unresolved target or
// a full send buffer is a silent no-op from the sender's perspective; the
// signaling channel has no acknowledgment path, so no error goes back.
func (r *Relay) Forward(kind protocol.Kind, from domain.Participant, to domain.ParticipantID, payload json.RawMessage) bool {
	cid, sig, ok := r.Registry.ConnOfParticipant(to)
	if !ok {
		log.Warn().Str("module", "app.relay").Str("kind", string(kind)).Str("to", string(to)).Msg("target participant not connected, dropping")
		r.Metrics.RelaysDropped.Inc()
		return false
	}

	frame, err := protocol.Encode(protocol.RelayDelivery{
		Type:                kind,
		Payload:             payload,
		FromParticipantID:   from.ID,
		FromParticipantName: from.Name,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("kind", string(kind)).Msg("encode relay delivery")
		return false
	}

	if err := sig.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("kind", string(kind)).Str("to_conn", string(cid)).Msg("relay dropped on backpressure")
		r.Metrics.RelaysDropped.Inc()
		return false
	}

	r.Metrics.RelaysForwarded.WithLabelValues(string(kind)).Inc()
	log.Debug().Str("module", "app.relay").Str("kind", string(kind)).Str("from", string(from.ID)).Str("to_conn", string(cid)).Msg("relayed")
	return true
}
