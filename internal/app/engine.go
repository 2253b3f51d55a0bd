package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// Dialer connects to the media engine at uri.
type Dialer func(ctx context.Context, uri string) (core.MediaClient, error)

// EngineHandle owns the single process-wide media engine client. The client
// is dialed lazily on first use and closed when the last active session
// leaves, so the next burst of activity gets a fresh connection.
type EngineHandle struct {
	uri  string
	dial Dialer

	mu     sync.Mutex
	client core.MediaClient
}

func NewEngineHandle(uri string, dial Dialer) *EngineHandle {
	return &EngineHandle{uri: uri, dial: dial}
}

// Acquire returns the shared client, dialing it if necessary.
func (h *EngineHandle) Acquire(ctx context.Context) (core.MediaClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		return h.client, nil
	}
	client, err := h.dial(ctx, h.uri)
	if err != nil {
		return nil, domain.EngineUnavailable(h.uri, err)
	}
	h.client = client
	log.Info().Str("module", "app.engine").Str("uri", h.uri).Msg("media engine client acquired")
	return client, nil
}

// Close tears the shared client down and resets the handle to not-yet-created.
func (h *EngineHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked()
}

// CloseIfIdle closes the shared client when active reports zero sessions.
// The check and the close run under the same lock as Acquire: a session that
// promotes itself before acquiring can never lose a just-dialed client to a
// concurrent teardown.
func (h *EngineHandle) CloseIfIdle(active func() int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil || active() != 0 {
		return
	}
	h.closeLocked()
}

func (h *EngineHandle) closeLocked() {
	if h.client == nil {
		return
	}
	log.Info().Str("module", "app.engine").Msg("closing media engine client")
	if err := h.client.Close(); err != nil {
		log.Error().Err(err).Str("module", "app.engine").Msg("engine client close error")
	}
	h.client = nil
}
