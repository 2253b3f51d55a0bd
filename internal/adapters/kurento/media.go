package kurento

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

// object is implemented by every engine-side resource so elements can be
// passed to connect/disconnect regardless of their concrete type.
type object interface {
	objectID() string
}

func objectIDOf(el core.Element) (string, error) {
	o, ok := el.(object)
	if !ok {
		return "", fmt.Errorf("kurento: foreign element %T", el)
	}
	return o.objectID(), nil
}

type elementSpec struct {
	elemType   string
	ctorParams map[string]any
}

type pipeline struct {
	c  *Client
	id string

	releaseOnce sync.Once
	releaseErr  error
}

func (p *pipeline) objectID() string { return p.id }

func (p *pipeline) CreateEndpoint(ctx context.Context) (core.Endpoint, error) {
	ids, err := p.createElements(ctx, elementSpec{
		elemType:   "WebRtcEndpoint",
		ctorParams: map[string]any{"mediaPipeline": p.id},
	})
	if err != nil {
		return nil, err
	}
	return &endpoint{c: p.c, id: ids[0]}, nil
}

func (p *pipeline) CreateRecorder(ctx context.Context, opts core.RecorderOptions) (core.Recorder, error) {
	ids, err := p.createElements(ctx, elementSpec{
		elemType: "RecorderEndpoint",
		ctorParams: map[string]any{
			"mediaPipeline":     p.id,
			"uri":               opts.URI,
			"mediaProfile":      string(opts.Profile),
			"stopOnEndOfStream": opts.StopOnEndOfStream,
			"stopTimeOut":       opts.StopTimeout.Milliseconds(),
		},
	})
	if err != nil {
		return nil, err
	}
	return &recorder{c: p.c, id: ids[0]}, nil
}

// createElements creates the requested elements transactionally: on any
// failure the elements created so far go down with the pipeline, which is
// released before the error propagates.
func (p *pipeline) createElements(ctx context.Context, specs ...elementSpec) ([]string, error) {
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		id, err := p.c.create(ctx, spec.elemType, spec.ctorParams)
		if err != nil {
			_ = p.Release(context.WithoutCancel(ctx))
			return nil, domain.ElementCreationFailed(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Release is idempotent: the engine is told to release the pipeline exactly
// once, no matter how many teardown paths reach it.
func (p *pipeline) Release(ctx context.Context) error {
	p.releaseOnce.Do(func() {
		p.releaseErr = p.c.release(ctx, p.id)
	})
	return p.releaseErr
}

type endpoint struct {
	c  *Client
	id string

	releaseOnce sync.Once
	releaseErr  error
}

func (e *endpoint) objectID() string { return e.id }

func (e *endpoint) Connect(ctx context.Context, sink core.Element) error {
	sinkID, err := objectIDOf(sink)
	if err != nil {
		return err
	}
	_, err = e.c.invoke(ctx, e.id, "connect", map[string]any{"sink": sinkID})
	return err
}

func (e *endpoint) Disconnect(ctx context.Context, sink core.Element) error {
	sinkID, err := objectIDOf(sink)
	if err != nil {
		return err
	}
	_, err = e.c.invoke(ctx, e.id, "disconnect", map[string]any{"sink": sinkID})
	return err
}

func (e *endpoint) ProcessOffer(ctx context.Context, sdpOffer string) (string, error) {
	raw, err := e.c.invoke(ctx, e.id, "processOffer", map[string]any{"offer": sdpOffer})
	if err != nil {
		return "", err
	}
	var answer string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return "", fmt.Errorf("kurento: processOffer answer: %w", err)
	}
	return answer, nil
}

func (e *endpoint) GatherCandidates(ctx context.Context) error {
	_, err := e.c.invoke(ctx, e.id, "gatherCandidates", nil)
	return err
}

func (e *endpoint) AddCandidate(ctx context.Context, cand webrtc.ICECandidateInit) error {
	param := map[string]any{
		"__module__": "kurento",
		"__type__":   "IceCandidate",
		"candidate":  cand.Candidate,
	}
	if cand.SDPMid != nil {
		param["sdpMid"] = *cand.SDPMid
	}
	if cand.SDPMLineIndex != nil {
		param["sdpMLineIndex"] = *cand.SDPMLineIndex
	}
	_, err := e.c.invoke(ctx, e.id, "addIceCandidate", map[string]any{"candidate": param})
	return err
}

func (e *endpoint) OnCandidate(fn func(webrtc.ICECandidateInit)) error {
	return e.c.subscribe(context.Background(), e.id, "OnIceCandidate", func(data json.RawMessage) {
		var ev iceCandidateData
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		mid := ev.Candidate.SDPMid
		idx := ev.Candidate.SDPMLineIndex
		fn(webrtc.ICECandidateInit{
			Candidate:     ev.Candidate.Candidate,
			SDPMid:        &mid,
			SDPMLineIndex: &idx,
		})
	})
}

func (e *endpoint) Release(ctx context.Context) error {
	e.releaseOnce.Do(func() {
		e.releaseErr = e.c.release(ctx, e.id)
	})
	return e.releaseErr
}

type recorder struct {
	c  *Client
	id string

	releaseOnce sync.Once
	releaseErr  error
}

func (r *recorder) objectID() string { return r.id }

func (r *recorder) Record(ctx context.Context) error {
	_, err := r.c.invoke(ctx, r.id, "record", nil)
	return err
}

func (r *recorder) Stop(ctx context.Context) error {
	_, err := r.c.invoke(ctx, r.id, "stop", nil)
	return err
}

func (r *recorder) Release(ctx context.Context) error {
	r.releaseOnce.Do(func() {
		r.releaseErr = r.c.release(ctx, r.id)
	})
	return r.releaseErr
}
