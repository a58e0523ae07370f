package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
)

func (ctl *SignalWSController) handleJoin(
	ctx context.Context,
	cid core.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p protocol.JoinRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad join payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("incomplete join payload")
		return
	}
	if !ctl.Limiter.Allow(p.ParticipantID) {
		log.Warn().Str("module", "signal").Str("participant", string(p.ParticipantID)).Msg("join rate limit exceeded")
		return
	}

	participant, err := domain.NewParticipant(p.ParticipantID, p.ParticipantName, p.IsHost)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("rejecting join")
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("room", string(p.MeetingID)).Str("participant", string(p.ParticipantID)).Msg("join")
	ctl.Orch.Join(ctx, cid, conn, p.MeetingID, participant)
}

func (ctl *SignalWSController) handleLeave(cid core.ConnID, data []byte) {
	var p protocol.LeaveRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad leave payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("incomplete leave payload")
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("room", string(p.MeetingID)).Msg("leave")
	ctl.Orch.Leave(cid)
}

func (ctl *SignalWSController) handleStateChange(cid core.ConnID, data []byte) {
	var p protocol.StateChangeRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad state-change payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("incomplete state-change payload")
		return
	}

	ctl.Orch.UpdateState(cid, p.IsAudioMuted, p.IsVideoOff)
}
