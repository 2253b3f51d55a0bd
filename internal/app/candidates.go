package app

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// CandidateBuffer holds ICE candidates that arrived before the owning
// session's endpoint existed. A queue is non-empty only while the endpoint
// is missing; it is drained in arrival order and deleted as soon as the
// endpoint appears.
type CandidateBuffer struct {
	mu     sync.Mutex
	queues map[domain.SessionID][]webrtc.ICECandidateInit
}

func NewCandidateBuffer() *CandidateBuffer {
	return &CandidateBuffer{queues: make(map[domain.SessionID][]webrtc.ICECandidateInit)}
}

func (b *CandidateBuffer) Enqueue(sid domain.SessionID, cand webrtc.ICECandidateInit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[sid] = append(b.queues[sid], cand)
	log.Debug().Str("module", "app.candidates").Str("sid", string(sid)).Int("queued", len(b.queues[sid])).Msg("queueing candidate")
}

// DrainInto forwards all buffered candidates for sid to the endpoint in
// insertion order and deletes the queue entry. The protocol has no
// per-candidate acknowledgment, so forwarding failures are logged, never
// propagated.
func (b *CandidateBuffer) DrainInto(ctx context.Context, sid domain.SessionID, ep core.Endpoint) {
	b.mu.Lock()
	pending := b.queues[sid]
	delete(b.queues, sid)
	b.mu.Unlock()

	for _, cand := range pending {
		if err := ep.AddCandidate(ctx, cand); err != nil {
			log.Error().Err(err).Str("module", "app.candidates").Str("sid", string(sid)).Msg("failed to forward buffered candidate")
		}
	}
}

// Clear deletes the queue entry unconditionally. Used at session-start and
// at teardown so stale candidates never leak into a later negotiation.
func (b *CandidateBuffer) Clear(sid domain.SessionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, sid)
}

// Pending reports how many candidates are buffered for sid.
func (b *CandidateBuffer) Pending(sid domain.SessionID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[sid])
}
