package app

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// EventSink delivers unsolicited outbound protocol events to a session's
// transport. Implemented by the signal adapter. Sessions are passed by value;
// the sink only needs the stable identity and signal connection.
type EventSink interface {
	IceCandidate(s core.Session, cand webrtc.ICECandidateInit)
	StopCommunication(s core.Session, room domain.RoomName)
}

// Orchestrator drives the negotiation state machine for every session:
// acquire engine, build pipeline and endpoints, drain buffered candidates,
// connect the media topology, negotiate SDP and publish the session into the
// registry. Any step's failure tears partial state down and propagates one
// typed error; nothing is retried automatically.
type Orchestrator struct {
	Registry   *Registry
	Rooms      *RoomDirectory
	Candidates *CandidateBuffer
	Engine     *EngineHandle
	Events     EventSink

	// RecordingDir is the base URI recorder elements write under.
	RecordingDir string
}

// Connect registers a fresh unassigned session at connection-open.
func (o *Orchestrator) Connect(sid domain.SessionID, conn core.SignalConnection) {
	o.Registry.Add(core.NewSession(sid, conn))
	o.Candidates.Clear(sid)
}

// Disconnect runs the stop path and forgets the session. Invoked
// unconditionally on transport close or error.
func (o *Orchestrator) Disconnect(ctx context.Context, sid domain.SessionID) {
	o.Stop(ctx, sid)
	o.Registry.Remove(sid)
}

// StartPresenter negotiates a presenter session for room and returns the SDP
// answer. The presenter slot is reserved before the first engine call so a
// concurrent second presenter fails with PresenterExists without disturbing
// the first.
func (o *Orchestrator) StartPresenter(ctx context.Context, sid domain.SessionID, sdpOffer string, roomArg domain.RoomName) (string, error) {
	room := roomArg.Normalize()
	o.Candidates.Clear(sid)

	sess, ok := o.Registry.Lookup(sid)
	if !ok {
		return "", domain.SessionRequired(sid)
	}
	if err := o.Rooms.ReservePresenter(room, sid); err != nil {
		return "", err
	}
	if !o.Registry.Promote(sid, domain.RolePresenter, room) {
		o.Rooms.Evict(room, sid)
		return "", domain.SessionRequired(sid)
	}

	answer, err := o.negotiatePresenter(ctx, sess, room, sdpOffer)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Msg("presenter negotiation failed")
		o.Stop(ctx, sid)
		// Stop cannot return the slot if a disconnect already removed the
		// session, so give the reservation back explicitly.
		o.Rooms.Evict(room, sid)
		return "", err
	}
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Msg("presenter active")
	return answer, nil
}

func (o *Orchestrator) negotiatePresenter(ctx context.Context, sess core.Session, room domain.RoomName, sdpOffer string) (string, error) {
	sid := sess.ID

	client, err := o.Engine.Acquire(ctx)
	if err != nil {
		return "", err
	}
	pipeline, err := client.CreatePipeline(ctx)
	if err != nil {
		return "", wrapCreation(err)
	}
	if !o.Registry.AttachPipeline(sid, pipeline) {
		// Disconnect won the race; the pipeline is orphaned.
		releaseQuiet(ctx, pipeline)
		return "", domain.SessionRequired(sid)
	}

	ep, err := pipeline.CreateEndpoint(ctx)
	if err != nil {
		return "", wrapCreation(err)
	}
	if !o.Registry.AttachEndpoint(sid, ep) {
		releaseQuiet(ctx, pipeline)
		return "", domain.SessionRequired(sid)
	}
	o.bindCandidates(sess, ep)
	o.Candidates.DrainInto(ctx, sid, ep)

	answer, err := ep.ProcessOffer(ctx, sdpOffer)
	if err != nil {
		return "", domain.OfferProcessingFailed(err)
	}
	if err := ep.GatherCandidates(ctx); err != nil {
		return "", domain.CandidateGatheringFailed(err)
	}
	return answer, nil
}

// StartViewer negotiates a viewer session against the room's presenter and
// returns the SDP answer. The presenter is re-validated at every point of
// use; a presenter stopping mid-negotiation fails the viewer and the
// viewer's completed-but-orphaned endpoint is released by the stop path.
func (o *Orchestrator) StartViewer(ctx context.Context, sid domain.SessionID, sdpOffer string, roomArg domain.RoomName) (string, error) {
	room := roomArg.Normalize()
	o.Candidates.Clear(sid)

	sess, ok := o.Registry.Lookup(sid)
	if !ok {
		return "", domain.SessionRequired(sid)
	}

	answer, err := o.negotiateViewer(ctx, sess, room, sdpOffer)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Msg("viewer negotiation failed")
		o.Stop(ctx, sid)
		return "", err
	}
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Msg("viewer active")
	return answer, nil
}

func (o *Orchestrator) negotiateViewer(ctx context.Context, sess core.Session, room domain.RoomName, sdpOffer string) (string, error) {
	sid := sess.ID

	psess, err := o.presenterSession(room)
	if err != nil {
		return "", err
	}
	ep, err := psess.Pipeline.CreateEndpoint(ctx)
	if err != nil {
		return "", wrapCreation(err)
	}
	if !o.Registry.AttachEndpoint(sid, ep) {
		releaseQuiet(ctx, ep)
		return "", domain.SessionRequired(sid)
	}
	o.bindCandidates(sess, ep)
	o.Candidates.DrainInto(ctx, sid, ep)

	// The endpoint creation suspended us; the presenter may be gone by now.
	psess, err = o.presenterSession(room)
	if err != nil {
		return "", err
	}
	if err := psess.Endpoint.Connect(ctx, ep); err != nil {
		return "", domain.ConnectionFailed(err)
	}
	if err := ep.Connect(ctx, psess.Endpoint); err != nil {
		return "", domain.ConnectionFailed(err)
	}

	answer, err := ep.ProcessOffer(ctx, sdpOffer)
	if err != nil {
		return "", domain.OfferProcessingFailed(err)
	}
	if err := ep.GatherCandidates(ctx); err != nil {
		return "", domain.CandidateGatheringFailed(err)
	}

	if err := o.Rooms.AddViewer(room, sid); err != nil {
		return "", err
	}
	if !o.Registry.Promote(sid, domain.RoleViewer, room) {
		o.Rooms.RemoveViewer(room, sid)
		return "", domain.SessionRequired(sid)
	}
	return answer, nil
}

// presenterSession resolves the room's presenter with usable media
// resources, or PresenterNotFound. The returned snapshot is stale after the
// next suspension; callers re-resolve at the point of use.
func (o *Orchestrator) presenterSession(room domain.RoomName) (core.Session, error) {
	psid, ok := o.Rooms.PresenterOf(room)
	if !ok {
		return core.Session{}, domain.PresenterNotFound()
	}
	psess, ok := o.Registry.Lookup(psid)
	if !ok || psess.Pipeline == nil || psess.Endpoint == nil {
		return core.Session{}, domain.PresenterNotFound()
	}
	return psess, nil
}

// Stop tears the session's negotiation state down. For a presenter this
// broadcasts stopCommunication to every viewer in the room, releases the
// shared pipeline and evicts the room; a viewer releases only its own
// endpoint. Safe to call twice: the second call finds nothing to release.
// When no negotiated sessions remain anywhere, the shared engine client is
// closed so the next session re-acquires it.
func (o *Orchestrator) Stop(ctx context.Context, sid domain.SessionID) {
	sess, ok := o.Registry.Lookup(sid)
	if !ok {
		o.Candidates.Clear(sid)
		// A racing negotiation may have dialed the engine after the session
		// was already removed; close the client if nothing else holds it.
		o.Engine.CloseIfIdle(o.Registry.ActiveCount)
		return
	}
	room := sess.Room

	if sess.Role == domain.RolePresenter {
		for _, vsid := range o.Rooms.Evict(room, sid) {
			if vs, vok := o.Registry.Lookup(vsid); vok {
				o.Events.StopCommunication(vs, room)
				// Viewer endpoints live on the shared pipeline and are
				// released with it.
				o.Registry.Demote(vsid)
			}
			o.Candidates.Clear(vsid)
		}
		if sess.Pipeline != nil {
			releaseQuiet(ctx, sess.Pipeline)
		}
	} else {
		if sess.Endpoint != nil {
			releaseQuiet(ctx, sess.Endpoint)
		}
		if room != "" {
			o.Rooms.RemoveViewer(room, sid)
		}
	}

	o.Registry.Demote(sid)
	o.Candidates.Clear(sid)

	o.Engine.CloseIfIdle(o.Registry.ActiveCount)
}

// OnIceCandidate forwards a remote candidate when the session's endpoint
// exists and buffers it otherwise.
func (o *Orchestrator) OnIceCandidate(ctx context.Context, sid domain.SessionID, cand webrtc.ICECandidateInit) {
	if sess, ok := o.Registry.Lookup(sid); ok && sess.Endpoint != nil {
		log.Debug().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("sending candidate")
		if err := sess.Endpoint.AddCandidate(ctx, cand); err != nil {
			log.Error().Err(err).Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("add candidate failed")
		}
		return
	}
	o.Candidates.Enqueue(sid, cand)
}

func (o *Orchestrator) bindCandidates(sess core.Session, ep core.Endpoint) {
	err := ep.OnCandidate(func(cand webrtc.ICECandidateInit) {
		o.Events.IceCandidate(sess, cand)
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("sid", string(sess.ID)).Msg("candidate subscription failed")
	}
}

// wrapCreation keeps already-typed creation errors intact and wraps raw
// engine errors as ElementCreationFailed.
func wrapCreation(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ElementCreationFailed(err)
}

func releaseQuiet(ctx context.Context, el core.Element) {
	if err := el.Release(ctx); err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("release failed")
	}
}
