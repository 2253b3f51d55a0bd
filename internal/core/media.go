package core

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Broadcast/internal/domain"
)

// MediaClient is the shared handle to the external media engine. Exactly one
// is held process-wide; it is lazily dialed on first use and closed when the
// last session of any kind leaves.
type MediaClient interface {
	CreatePipeline(ctx context.Context) (Pipeline, error)
	Close() error
}

// Element is any releasable engine-side media object.
type Element interface {
	Release(ctx context.Context) error
}

// RecorderOptions are the constructor parameters of a recorder element.
type RecorderOptions struct {
	URI               string
	Profile           domain.RecorderProfile
	StopOnEndOfStream bool
	StopTimeout       time.Duration
}

// Pipeline is an engine-side media pipeline. Releasing a pipeline releases
// every element created on it. Creation failures release the pipeline before
// the error propagates; Release is idempotent.
type Pipeline interface {
	Element
	CreateEndpoint(ctx context.Context) (Endpoint, error)
	CreateRecorder(ctx context.Context, opts RecorderOptions) (Recorder, error)
}

// Endpoint is an engine-side WebRTC endpoint.
type Endpoint interface {
	Element
	// Connect establishes directional media flow from this element to sink.
	Connect(ctx context.Context, sink Element) error
	Disconnect(ctx context.Context, sink Element) error
	ProcessOffer(ctx context.Context, sdpOffer string) (sdpAnswer string, err error)
	GatherCandidates(ctx context.Context) error
	AddCandidate(ctx context.Context, cand webrtc.ICECandidateInit) error
	// OnCandidate registers a callback for candidates gathered engine-side.
	OnCandidate(fn func(webrtc.ICECandidateInit)) error
}

// Recorder is an engine-side recorder element.
type Recorder interface {
	Element
	Record(ctx context.Context) error
	Stop(ctx context.Context) error
}
