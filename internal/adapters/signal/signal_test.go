package signal

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Broadcast/internal/core"
)

type fakeWS struct {
	mu        sync.Mutex
	kinds     []int
	frames    [][]byte
	readErr   error
	readLimit int64
	pongSet   bool
	closed    bool
}

func (f *fakeWS) ReadMessage() (int, []byte, error) {
	if f.readErr != nil {
		return 0, nil, f.readErr
	}
	return 0, nil, errors.New("no input")
}

func (f *fakeWS) WriteMessage(mt int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, mt)
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeWS) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeWS) SetReadDeadline(t time.Time) error { return nil }

func (f *fakeWS) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeWS) SetPongHandler(h func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pongSet = true
}

func (f *fakeWS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWS) wroteKind(mt int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.kinds {
		if k == mt {
			return true
		}
	}
	return false
}

func TestTrySendAfterClose(t *testing.T) {
	c := newWSConn(&fakeWS{})
	c.Close()

	if err := c.TrySend(core.Frame(`{"id":"iceCandidate"}`)); err == nil {
		t.Fatal("TrySend after Close returned nil")
	}
	// Closing twice is fine too.
	c.Close()
}

func TestTrySendRacingClose(t *testing.T) {
	// Deliveries from other goroutines (engine events, a presenter's stop
	// broadcast) may land while the owning read pump is tearing the
	// connection down. They must fail cleanly, never panic.
	c := newWSConn(&fakeWS{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = c.TrySend(core.Frame("x"))
		}
	}()
	c.Close()
	<-done
}

func TestWritePumpExitsOnClose(t *testing.T) {
	ctl := NewController(nil, 0, 0)
	f := &fakeWS{}
	c := newWSConn(f)

	done := make(chan struct{})
	go func() {
		ctl.writePump(context.Background(), c)
		close(done)
	}()

	c.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writePump did not exit on close")
	}
}

func TestWritePumpKeepalive(t *testing.T) {
	ctl := NewController(nil, 0, 5*time.Millisecond)
	f := &fakeWS{}
	c := newWSConn(f)
	defer c.Close()

	go ctl.writePump(context.Background(), c)

	deadline := time.After(time.Second)
	for !f.wroteKind(websocket.PingMessage) {
		select {
		case <-deadline:
			t.Fatal("no ping written")
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func TestReadPumpConfiguresConnection(t *testing.T) {
	ctl := newTestController()
	f := &fakeWS{readErr: io.EOF}
	c := newWSConn(f)
	ctl.Orch.Connect("s1", c)

	ctl.readPump(context.Background(), "s1", c)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readLimit != defaultReadLimit {
		t.Errorf("read limit = %d, want %d", f.readLimit, defaultReadLimit)
	}
	if !f.pongSet {
		t.Error("pong handler not installed")
	}
	if !f.closed {
		t.Error("transport not closed when the read pump exits")
	}
}
