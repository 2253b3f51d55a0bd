// Package signal owns the browser-facing WebSocket connections: it decodes
// inbound messages, dispatches them to the orchestrator and serializes
// outbound events.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Broadcast/internal/app"
	"github.com/dkeye/Broadcast/internal/core"
	"github.com/dkeye/Broadcast/internal/domain"
)

const (
	writeWait = 5 * time.Second

	defaultReadLimit  = 32 << 10
	defaultPingPeriod = 54 * time.Second
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	Close() error
}

// wsConn's send channel is never closed: deliveries race Close from other
// goroutines (engine-side candidate events, a presenter's stop broadcast),
// so Close only flags the connection and signals done to the write pump.
type wsConn struct {
	conn WSConn

	mu     sync.Mutex
	closed bool

	send chan core.Frame
	done chan struct{}
	once sync.Once
}

func newWSConn(conn WSConn) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan core.Frame, 32),
		done: make(chan struct{}),
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return errBackpressure
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

var (
	errBackpressure = errors.New("backpressure")
	errConnClosed   = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller owns every signaling connection and implements the
// orchestrator's event sink.
type Controller struct {
	Orch *app.Orchestrator

	readLimit  int64
	pingPeriod time.Duration

	idCounter atomic.Uint64
}

func NewController(orch *app.Orchestrator, readLimit int64, pingPeriod time.Duration) *Controller {
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	return &Controller{Orch: orch, readLimit: readLimit, pingPeriod: pingPeriod}
}

// nextUniqueID generates session identities; they are never reused.
func (ctl *Controller) nextUniqueID() domain.SessionID {
	return domain.SessionID(strconv.FormatUint(ctl.idCounter.Add(1), 10))
}

// HandleSignal upgrades the request and runs the connection's pumps. The
// session lives exactly as long as the connection.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade failed")
		return
	}

	sid := ctl.nextUniqueID()
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("connection received")

	conn := newWSConn(ws)
	ctl.Orch.Connect(sid, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid domain.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("connection closed")
		ctl.Orch.Disconnect(ctx, sid)
		c.Close()
	}()

	pongWait := ctl.pingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleMessage(ctx, sid, c, data)
		}
	}
}

func (ctl *Controller) sendJSON(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal outbound event")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send outbound event")
	}
}

// IceCandidate implements app.EventSink.
func (ctl *Controller) IceCandidate(s core.Session, cand webrtc.ICECandidateInit) {
	ctl.sendJSON(s.Signal, candidateEvent{ID: "iceCandidate", Candidate: cand})
}

// StopCommunication implements app.EventSink.
func (ctl *Controller) StopCommunication(s core.Session, room domain.RoomName) {
	ctl.sendJSON(s.Signal, stopCommunicationEvent{ID: "stopCommunication", Room: room})
}
