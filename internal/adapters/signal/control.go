package signal

import "github.com/dkeye/Meet/internal/protocol"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type protocol.Kind `json:"type"`
	}{
		Type: protocol.KindPong,
	}
	ctl.sendJSON(conn, resp)
}
