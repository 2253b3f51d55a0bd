package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// handleMessage dispatches one inbound frame. Every request handler
// produces exactly one response event; a malformed or unrecognized message
// yields an error event and is otherwise inert.
func (ctl *Controller) handleMessage(ctx context.Context, sid domain.SessionID, conn core.SignalConnection, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.rejectInvalid(conn, data)
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("id", msg.ID).Str("room", msg.Room).Msg("received message")

	switch msg.ID {
	case msgPresenter:
		answer, err := ctl.Orch.StartPresenter(ctx, sid, msg.SDPOffer, domain.RoomName(msg.Room))
		ctl.respond(conn, "presenterResponse", answer, err)

	case msgViewer:
		answer, err := ctl.Orch.StartViewer(ctx, sid, msg.SDPOffer, domain.RoomName(msg.Room))
		ctl.respond(conn, "viewerResponse", answer, err)

	case msgStop:
		ctl.Orch.Stop(ctx, sid)

	case msgOnIceCandidate:
		if msg.Candidate == nil {
			ctl.rejectInvalid(conn, data)
			return
		}
		ctl.Orch.OnIceCandidate(ctx, sid, *msg.Candidate)

	case msgRecord:
		err := ctl.Orch.StartRecording(ctx, sid, domain.RoomName(msg.Room), msg.Type)
		ctl.respond(conn, "recordResponse", "", err)

	case msgStopRecord:
		err := ctl.Orch.StopRecording(ctx, sid, domain.RoomName(msg.Room))
		ctl.respond(conn, "stopRecordResponse", "", err)

	default:
		ctl.rejectInvalid(conn, data)
	}
}

func (ctl *Controller) rejectInvalid(conn core.SignalConnection, data []byte) {
	ctl.sendJSON(conn, errorEvent{ID: "error", Message: domain.InvalidMessage(string(data)).Message})
}

// respond converts a handler outcome into the accepted/rejected response
// event. Rejections carry the typed error as "Name: message".
func (ctl *Controller) respond(conn core.SignalConnection, id, sdpAnswer string, err error) {
	if err != nil {
		ctl.sendJSON(conn, negotiationResponse{
			ID:       id,
			Response: responseRejected,
			Message:  err.Error(),
		})
		return
	}
	ctl.sendJSON(conn, negotiationResponse{
		ID:        id,
		Response:  responseAccepted,
		SDPAnswer: sdpAnswer,
	})
}
