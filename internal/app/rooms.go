package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/domain"
)

// RoomDirectory groups sessions by room and enforces role cardinality:
// at most one presenter per room, unbounded viewers. Rooms are implicit,
// created when a presenter reserves the slot and destroyed when the
// presenter leaves.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*room
}

type room struct {
	presenter domain.SessionID
	viewers   map[domain.SessionID]struct{}
}

// RoomInfo is a read-only view for the REST surface.
type RoomInfo struct {
	Name    domain.RoomName `json:"name"`
	Viewers int             `json:"viewer_count"`
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[domain.RoomName]*room)}
}

// ReservePresenter claims the presenter slot before any engine work starts,
// so a concurrent second presenter fails fast without touching the first.
func (d *RoomDirectory) ReservePresenter(name domain.RoomName, sid domain.SessionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok {
		r = &room{viewers: make(map[domain.SessionID]struct{})}
		d.rooms[name] = r
	}
	if r.presenter != "" {
		return domain.PresenterExists()
	}
	r.presenter = sid
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Str("sid", string(sid)).Msg("presenter reserved")
	return nil
}

func (d *RoomDirectory) PresenterOf(name domain.RoomName) (domain.SessionID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[name]
	if !ok || r.presenter == "" {
		return "", false
	}
	return r.presenter, true
}

// AddViewer registers a viewer. A room without a presenter rejects viewers;
// no partial entry is created.
func (d *RoomDirectory) AddViewer(name domain.RoomName, sid domain.SessionID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok || r.presenter == "" {
		return domain.PresenterNotFound()
	}
	r.viewers[sid] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Str("sid", string(sid)).Int("viewers", len(r.viewers)).Msg("viewer added")
	return nil
}

func (d *RoomDirectory) RemoveViewer(name domain.RoomName, sid domain.SessionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.rooms[name]; ok {
		delete(r.viewers, sid)
	}
}

// Evict tears the room down if sid holds its presenter slot and returns the
// evicted viewer ids. A session that never became the presenter evicts
// nothing.
func (d *RoomDirectory) Evict(name domain.RoomName, sid domain.SessionID) []domain.SessionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	if !ok || r.presenter != sid {
		return nil
	}
	evicted := make([]domain.SessionID, 0, len(r.viewers))
	for vsid := range r.viewers {
		evicted = append(evicted, vsid)
	}
	delete(d.rooms, name)
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Int("evicted", len(evicted)).Msg("room evicted")
	return evicted
}

func (d *RoomDirectory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for name, r := range d.rooms {
		out = append(out, RoomInfo{Name: name, Viewers: len(r.viewers)})
	}
	return out
}
