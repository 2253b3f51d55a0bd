package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// StartRecording creates a recorder element on the presenter's pipeline,
// connects the presenter endpoint into it and starts recording. Only the
// room's presenter may record, and a session that is already recording is
// rejected instead of silently stacking recorders.
func (o *Orchestrator) StartRecording(ctx context.Context, sid domain.SessionID, roomArg domain.RoomName, sourceType string) error {
	sess, room, err := o.recordingTarget(sid, roomArg)
	if err != nil {
		return err
	}
	if sess.IsRecording {
		return domain.AlreadyRecording()
	}
	if sess.Pipeline == nil || sess.Endpoint == nil {
		return domain.RecordingFailed("Media elements not found", nil)
	}

	opts := core.RecorderOptions{
		URI:               o.recordingURI(room),
		Profile:           domain.ProfileFor(sourceType),
		StopOnEndOfStream: true,
		StopTimeout:       time.Second,
	}
	rec, err := sess.Pipeline.CreateRecorder(ctx, opts)
	if err != nil {
		return wrapCreation(err)
	}
	if err := sess.Endpoint.Connect(ctx, rec); err != nil {
		releaseQuiet(ctx, sess.Pipeline)
		return domain.ConnectionFailed(err)
	}
	if err := rec.Record(ctx); err != nil {
		releaseQuiet(ctx, sess.Pipeline)
		return domain.RecordingFailed("Error recording media element", err)
	}

	o.Registry.SetRecorder(sid, rec, true)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Str("uri", opts.URI).Msg("recording started")
	return nil
}

// StopRecording disconnects and stops the recorder element. Rejected with
// NotRecording when no recording is in progress.
func (o *Orchestrator) StopRecording(ctx context.Context, sid domain.SessionID, roomArg domain.RoomName) error {
	sess, room, err := o.recordingTarget(sid, roomArg)
	if err != nil {
		return err
	}
	if !sess.IsRecording || sess.Recorder == nil {
		return domain.NotRecording()
	}
	if sess.Pipeline == nil || sess.Endpoint == nil {
		return domain.RecordingFailed("Media elements not found", nil)
	}

	rec := sess.Recorder
	if err := sess.Endpoint.Disconnect(ctx, rec); err != nil {
		releaseQuiet(ctx, sess.Pipeline)
		return domain.ConnectionFailed(err)
	}
	if err := rec.Stop(ctx); err != nil {
		releaseQuiet(ctx, sess.Pipeline)
		return domain.RecordingFailed("Error stopping media element", err)
	}
	releaseQuiet(ctx, rec)

	o.Registry.SetRecorder(sid, nil, false)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Msg("recording stopped")
	return nil
}

// recordingTarget validates that sid is the presenter of the resolved room.
// The room argument defaults to the session's own room.
func (o *Orchestrator) recordingTarget(sid domain.SessionID, roomArg domain.RoomName) (core.Session, domain.RoomName, error) {
	sess, ok := o.Registry.Lookup(sid)
	if !ok {
		return core.Session{}, "", domain.SessionRequired(sid)
	}
	if sess.Role != domain.RolePresenter {
		return core.Session{}, "", domain.RecordingFailed("Only the presenter can record", nil)
	}
	room := roomArg
	if room == "" {
		room = sess.Room
	}
	if room == "" {
		return core.Session{}, "", domain.RoomRequired()
	}
	psid, ok := o.Rooms.PresenterOf(room)
	if !ok || psid != sid {
		return core.Session{}, "", domain.PresenterNotFound()
	}
	return sess, room, nil
}

func (o *Orchestrator) recordingURI(room domain.RoomName) string {
	base := strings.TrimRight(o.RecordingDir, "/")
	return fmt.Sprintf("%s/%s-room-one2many-case-%d.webm", base, room, time.Now().UnixMilli())
}
