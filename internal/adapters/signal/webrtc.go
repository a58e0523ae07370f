package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/protocol"
)

// handleRelay covers offer, answer and ice-candidate. The payload stays
// opaque: it belongs to the peer-connection protocol running on the clients,
// the server only tags it with the sender and forwards it.
func (ctl *SignalWSController) handleRelay(kind protocol.Kind, cid core.ConnID, data []byte) {
	var p protocol.RelayRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(kind)).Str("conn", string(cid)).Msg("bad relay payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(kind)).Str("conn", string(cid)).Msg("incomplete relay payload")
		return
	}

	ctl.Orch.RelayFrom(kind, cid, p.ToParticipantID, p.Payload)
}
