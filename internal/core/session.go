package core

import "github.com/dkeye/Broadcast/internal/domain"

// Session is the per-connection aggregate: identity, negotiated role and
// room, the transport endpoint and the engine resources the session owns.
// The transport connection owns the session's lifecycle; the session only
// holds the connection to push events through it.
//
// All field mutation goes through the registry, which serializes it and
// hands out value snapshots, never the stored pointer.
type Session struct {
	ID     domain.SessionID
	Role   domain.Role
	Room   domain.RoomName
	Signal SignalConnection

	// Pipeline is owned exclusively by presenter sessions. Viewers create
	// their endpoint on the presenter's pipeline but never own it.
	Pipeline Pipeline
	Endpoint Endpoint
	Recorder Recorder

	IsRecording bool
}

// NewSession is created at connection-open with an unassigned role.
func NewSession(id domain.SessionID, signal SignalConnection) *Session {
	return &Session{
		ID:     id,
		Role:   domain.RoleUnassigned,
		Signal: signal,
	}
}
