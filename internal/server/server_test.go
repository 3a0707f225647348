package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"aster/internal/config"
	"aster/internal/display"
	"aster/internal/shm"
	"aster/internal/wire"
)

// newTestServer builds a server over a memory display with fast animations.
// No goroutines are started; tests drive the service and render paths
// directly.
func newTestServer(t *testing.T, width, height int) *Server {
	t.Helper()
	t.Setenv("ASTER_SHM_DIR", t.TempDir())
	shm.ResetDirCache()
	t.Cleanup(shm.ResetDirCache)

	cfg := config.Default()
	cfg.Animations.FadeInMs = 1
	cfg.Animations.FadeOutMs = 1

	s := New(cfg, display.NewMemory(width, height), "test")
	s.drawCursor = false
	return s
}

// sink captures everything the server sends to one client.
type sink struct {
	ch chan *wire.Message
}

// waitFor drains messages until one of the wanted type arrives.
func (k *sink) waitFor(t *testing.T, typ uint32) *wire.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-k.ch:
			if !ok {
				t.Fatalf("connection closed while waiting for %#x", typ)
			}
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for message %#x", typ)
		}
	}
}

// tryNext returns the next message within a short window, or nil.
func (k *sink) tryNext(d time.Duration) *wire.Message {
	select {
	case msg := <-k.ch:
		return msg
	case <-time.After(d):
		return nil
	}
}

// attachClient registers an in-process connection backed by a pipe and
// returns it with a sink of its server-sent messages.
func attachClient(t *testing.T, s *Server) (*Connection, *sink) {
	t.Helper()
	a, b := net.Pipe()
	c := newConnection(a)
	s.renderMu.Lock()
	s.conns[c] = struct{}{}
	s.renderMu.Unlock()

	k := &sink{ch: make(chan *wire.Message, 256)}
	go func() {
		defer close(k.ch)
		br := bufio.NewReader(b)
		for {
			msg, err := wire.ReadMessage(br)
			if err != nil {
				return
			}
			k.ch <- msg
		}
	}()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return c, k
}

// finishAnimation snaps a window out of its entry animation.
func finishAnimation(s *Server, w *Window) {
	s.renderMu.Lock()
	w.animMode = animNone
	s.renderMu.Unlock()
}

// paint fills a window buffer with one BGRA pixel value.
func paint(w *Window, b, g, r, a byte) {
	for i := 0; i+3 < len(w.buf.Data); i += 4 {
		w.buf.Data[i] = b
		w.buf.Data[i+1] = g
		w.buf.Data[i+2] = r
		w.buf.Data[i+3] = a
	}
}

// absEvent injects an absolute pointer event in screen coordinates.
func absEvent(s *Server, x, y int, buttons uint32) {
	s.handleMouseEvent(wire.MouseEvent{
		DX:      int32(x),
		DY:      int32(y),
		Buttons: buttons,
		Kind:    wire.MouseAbsolute,
	})
}
