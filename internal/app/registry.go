package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// Registry is the authoritative session store. Sessions are added at
// connection-open with an unassigned role, promoted on successful
// negotiation and demoted (or removed) on teardown.
//
// All mutation of session fields goes through the registry so that the
// per-connection goroutines never race each other; reads taken before an
// engine call are treated as stale afterwards and re-validated at the point
// of use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.SessionID]*core.Session)}
}

func (r *Registry) Add(sess *core.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Msg("session added")
}

// Lookup returns a point-in-time copy of the session, never the stored
// pointer: handing the pointer out would let callers read fields while
// another goroutine mutates them through the registry. A copy read before a
// suspension is stale afterwards; callers re-validate with a fresh Lookup at
// the point of use.
func (r *Registry) Lookup(sid domain.SessionID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	if !ok {
		return core.Session{}, false
	}
	return *s, true
}

// Remove deletes the session entirely. Used when the transport goes away.
func (r *Registry) Remove(sid domain.SessionID) (core.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return core.Session{}, false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session removed")
	return *s, true
}

// Promote assigns role and room. Reports false if the session is gone,
// which happens when a disconnect raced the negotiation.
func (r *Registry) Promote(sid domain.SessionID, role domain.Role, room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	s.Role = role
	s.Room = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("role", string(role)).Str("room", string(room)).Msg("session promoted")
	return true
}

// Demote resets the session to its connection-open state. The engine
// resources must already be released by the caller; Demote only drops the
// handles.
func (r *Registry) Demote(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return
	}
	s.Role = domain.RoleUnassigned
	s.Room = ""
	s.Pipeline = nil
	s.Endpoint = nil
	s.Recorder = nil
	s.IsRecording = false
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session demoted")
}

func (r *Registry) AttachPipeline(sid domain.SessionID, p core.Pipeline) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	s.Pipeline = p
	return true
}

func (r *Registry) AttachEndpoint(sid domain.SessionID, ep core.Endpoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	s.Endpoint = ep
	return true
}

func (r *Registry) SetRecorder(sid domain.SessionID, rec core.Recorder, recording bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return false
	}
	s.Recorder = rec
	s.IsRecording = recording
	return true
}

// ActiveCount reports how many sessions hold a negotiated role. The shared
// engine handle is closed when this drops to zero.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.Role != domain.RoleUnassigned {
			n++
		}
	}
	return n
}
