package kurento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/core"
)

var errClientClosed = errors.New("kurento: client closed")

// Client is a connection to the media engine. Requests are correlated with
// responses by numeric id; every operation carries the configured deadline.
// One Client is shared process-wide (see the engine handle in internal/app).
type Client struct {
	conn    *websocket.Conn
	timeout time.Duration

	// gorilla allows a single concurrent writer.
	writeMu sync.Mutex

	mu        sync.Mutex
	nextID    uint64
	pending   map[uint64]chan rpcResponse
	subs      map[string]func(json.RawMessage)
	sessionID string
	closed    bool

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the engine at uri. timeout bounds every subsequent
// operation on the client; zero means no deadline.
func Dial(ctx context.Context, uri string, timeout time.Duration) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("kurento: dial %s: %w", uri, err)
	}
	c := &Client{
		conn:    conn,
		timeout: timeout,
		pending: make(map[uint64]chan rpcResponse),
		subs:    make(map[string]func(json.RawMessage)),
		done:    make(chan struct{}),
	}
	go c.readPump()
	log.Info().Str("module", "kurento").Str("uri", uri).Msg("connected to media engine")
	return c, nil
}

// CreatePipeline creates an engine-side MediaPipeline.
func (c *Client) CreatePipeline(ctx context.Context) (core.Pipeline, error) {
	id, err := c.create(ctx, "MediaPipeline", nil)
	if err != nil {
		return nil, err
	}
	return &pipeline{c: c, id: id}, nil
}

// Close drops the connection and fails every in-flight request.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			delete(c.pending, id)
			ch <- rpcResponse{Error: &rpcError{Message: errClientClosed.Error()}}
		}
		c.mu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Error().Err(err).Str("module", "kurento").Msg("engine connection lost")
			}
			return
		}
		var env rpcEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Error().Err(err).Str("module", "kurento").Msg("bad engine frame")
			continue
		}
		if env.Method == "onEvent" {
			c.dispatchEvent(env.Params)
			continue
		}
		if env.ID == nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[*env.ID]
		delete(c.pending, *env.ID)
		c.mu.Unlock()
		if ok {
			ch <- rpcResponse{ID: *env.ID, Result: env.Result, Error: env.Error}
		}
	}
}

func (c *Client) dispatchEvent(params json.RawMessage) {
	var ev onEventParams
	if err := json.Unmarshal(params, &ev); err != nil {
		log.Error().Err(err).Str("module", "kurento").Msg("bad engine event")
		return
	}
	c.mu.Lock()
	fn := c.subs[ev.Value.Object+"/"+ev.Value.Type]
	c.mu.Unlock()
	if fn != nil {
		fn(ev.Value.Data)
	}
}

// call issues one request and waits for its response or the deadline.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errClientClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan rpcResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("kurento: %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("kurento: %s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, fmt.Errorf("kurento: %s: %w", method, ctx.Err())
	case <-c.done:
		return nil, errClientClosed
	}
}

func (c *Client) dropPending(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) create(ctx context.Context, elemType string, ctorParams map[string]any) (string, error) {
	raw, err := c.call(ctx, "create", createParams{
		Type:              elemType,
		ConstructorParams: ctorParams,
		SessionID:         c.session(),
	})
	if err != nil {
		return "", err
	}
	var res createResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("kurento: create %s: %w", elemType, err)
	}
	if res.SessionID != "" {
		c.setSession(res.SessionID)
	}
	return res.Value, nil
}

func (c *Client) invoke(ctx context.Context, object, operation string, params map[string]any) (json.RawMessage, error) {
	raw, err := c.call(ctx, "invoke", invokeParams{
		Object:          object,
		Operation:       operation,
		OperationParams: params,
		SessionID:       c.session(),
	})
	if err != nil {
		return nil, err
	}
	var res invokeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("kurento: invoke %s.%s: %w", object, operation, err)
	}
	return res.Value, nil
}

func (c *Client) release(ctx context.Context, object string) error {
	_, err := c.call(ctx, "release", releaseParams{Object: object, SessionID: c.session()})
	return err
}

// subscribe registers the handler before issuing the RPC so an event racing
// the response is never dropped.
func (c *Client) subscribe(ctx context.Context, object, evType string, fn func(json.RawMessage)) error {
	key := object + "/" + evType
	c.mu.Lock()
	c.subs[key] = fn
	c.mu.Unlock()

	_, err := c.call(ctx, "subscribe", subscribeParams{Object: object, Type: evType, SessionID: c.session()})
	if err != nil {
		c.mu.Lock()
		delete(c.subs, key)
		c.mu.Unlock()
	}
	return err
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}
