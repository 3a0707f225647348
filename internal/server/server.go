// Package server implements the compositor core: the connection endpoint,
// the window registry, the input dispatcher, and the damage-driven render
// thread.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"aster/internal/config"
	"aster/internal/display"
	"aster/internal/gfx"
	"aster/internal/socketdir"
	"aster/internal/wire"
)

// packet is one unit of service-loop work: a message from a connection, or
// its closure when msg is nil.
type packet struct {
	conn *Connection
	msg  *wire.Message
}

// Server is the compositor. One instance arbitrates one display.
type Server struct {
	cfg   *config.Config
	ident string

	backend display.Backend
	back    *image.RGBA

	width, height int

	ln      net.Listener
	packets chan packet
	done    chan struct{}
	stop    sync.Once

	// renderMu guards the z-order, the registry indexes, focus, the
	// connection set, and the window-destruction path.
	renderMu sync.Mutex
	damage   damageQueue

	windows     map[uint32]*Window
	middle      []*Window
	bottom, top *Window
	focused     *Window
	hover       *Window

	conns       map[*Connection]struct{}
	subscribers map[*Connection]struct{}
	binds       map[keyCombo]*keyBinding

	nextWid   uint32
	nextBufid uint32

	// Pointer interaction state; service thread only.
	mouseX, mouseY           int
	mouseState               int
	mouseWin                 *Window
	mouseInitX, mouseInitY   int
	mouseWinX, mouseWinY     int
	mouseDragButton          uint32
	mouseMoved               bool
	mouseClickX, mouseClickY int
	kbdMods                  uint32
	resizeButton             uint32

	// Interactive-resize state; guarded by renderMu (the render thread
	// draws the outline).
	resizing                   *Window
	resizingDir                int
	resizingW, resizingH       int
	resizingOffX, resizingOffY int
	resizingButton             uint32

	// Pointer snapshot published for the render thread.
	ptrX, ptrY, ptrState atomic.Int32

	screenshotFrame atomic.Int32

	// Render-thread locals.
	lastMouseX, lastMouseY int
	lastSprite             *image.RGBA
	sprites                *gfx.Sprites
	drawCursor             bool
}

// New builds a server over a display backend. The endpoint is not bound
// until Bind or Run.
func New(cfg *config.Config, backend display.Backend, ident string) *Server {
	w, h := backend.Size()
	s := &Server{
		cfg:          cfg,
		ident:        ident,
		backend:      backend,
		back:         image.NewRGBA(image.Rect(0, 0, w, h)),
		width:        w,
		height:       h,
		packets:      make(chan packet, 128),
		done:         make(chan struct{}),
		windows:      make(map[uint32]*Window),
		conns:        make(map[*Connection]struct{}),
		subscribers:  make(map[*Connection]struct{}),
		binds:        make(map[keyCombo]*keyBinding),
		nextWid:      1,
		nextBufid:    1,
		resizeButton: wire.ButtonMiddle,
		sprites:      gfx.NewSprites(),
		drawCursor:   true,
	}
	if cfg.ResizeWithRightButton {
		s.resizeButton = wire.ButtonRight
	}
	s.mouseX = w * mouseScale / 2
	s.mouseY = h * mouseScale / 2
	s.storePointer()
	return s
}

// Ident returns the endpoint name.
func (s *Server) Ident() string { return s.ident }

// SetDrawCursor disables the cursor sprite; the nested backend's host draws
// its own.
func (s *Server) SetDrawCursor(draw bool) { s.drawCursor = draw }

// storePointer publishes the pointer position and interaction state for
// the render thread.
func (s *Server) storePointer() {
	s.ptrX.Store(int32(s.mouseX))
	s.ptrY.Store(int32(s.mouseY))
	s.ptrState.Store(int32(s.mouseState))
}

func (s *Server) loadPointer() (x, y, state int) {
	return int(s.ptrX.Load()), int(s.ptrY.Load()), int(s.ptrState.Load())
}

// Bind creates the endpoint socket and publishes it in the environment.
func (s *Server) Bind() error {
	if err := os.MkdirAll(socketdir.Dir(), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	sockPath := socketdir.Path(s.ident)
	if _, err := os.Stat(sockPath); err == nil {
		conn, err := net.DialTimeout("unix", sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("compositor %q is already running", s.ident)
		}
		os.Remove(sockPath)
	}

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen on endpoint: %w", err)
	}
	s.ln = ln
	os.Setenv(socketdir.DisplayEnv, s.ident)
	log.Info().Str("endpoint", s.ident).Int("width", s.width).Int("height", s.height).Msg("compositor up")
	return nil
}

// Run binds the endpoint, starts the render thread and input threads, and
// services messages until Shutdown. The caller's goroutine becomes the
// service thread.
func (s *Server) Run() error {
	if s.ln == nil {
		if err := s.Bind(); err != nil {
			return err
		}
	}

	go s.acceptLoop()
	go s.renderLoop()
	s.startInputThreads()

	s.serviceLoop()
	return nil
}

// Shutdown stops the server and removes its endpoint.
func (s *Server) Shutdown() {
	s.stop.Do(func() {
		close(s.done)
		if s.ln != nil {
			s.ln.Close()
			os.Remove(socketdir.Path(s.ident))
		}
		s.backend.Close()
	})
}

// acceptLoop admits client connections and spawns their readers.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return // listener closed
		}
		c := newConnection(conn)
		s.renderMu.Lock()
		s.conns[c] = struct{}{}
		s.renderMu.Unlock()
		log.Debug().Str("client", c.id).Msg("client connected")
		go s.readLoop(c)
	}
}

// readLoop delivers a connection's messages to the service thread in
// order. A frame with a bad magic is logged and skipped; the connection
// survives it. Any other read error (EOF, or a frame size outside the
// accepted range) turns into a closure packet.
func (s *Server) readLoop(c *Connection) {
	br := bufio.NewReader(c.c)
	for {
		msg, err := wire.ReadMessage(br)
		if err != nil {
			if errors.Is(err, wire.ErrBadMagic) {
				log.Warn().Str("client", c.id).Msg("message has bad magic; skipping")
				continue
			}
			break
		}
		select {
		case s.packets <- packet{conn: c, msg: msg}:
		case <-s.done:
			return
		}
	}
	select {
	case s.packets <- packet{conn: c}:
	case <-s.done:
	}
}

// serviceLoop is the single thread where all message handling and registry
// mutation happens.
func (s *Server) serviceLoop() {
	for {
		select {
		case <-s.done:
			return
		case pkt := <-s.packets:
			if pkt.msg == nil {
				s.handleDisconnect(pkt.conn)
				continue
			}
			s.handleMessage(pkt.conn, pkt.msg)
		}
	}
}

// handleDisconnect releases everything a departed connection owned: its
// windows fade out, its keybindings and subscription are dropped.
func (s *Server) handleDisconnect(c *Connection) {
	log.Debug().Str("client", c.id).Msg("connection closed")
	c.c.Close()

	s.renderMu.Lock()
	windows := append([]*Window(nil), c.windows...)
	delete(s.conns, c)
	delete(s.subscribers, c)
	s.renderMu.Unlock()

	for _, w := range windows {
		log.Debug().Uint32("wid", w.wid).Msg("closing window of departed client")
		s.markForClose(w)
	}
	s.dropKeyBinds(c)
}

// broadcast sends a message to every connected client.
func (s *Server) broadcast(typ uint32, body []byte) {
	s.renderMu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.renderMu.Unlock()
	for _, c := range conns {
		c.send(typ, body)
	}
}

// SessionEnd asks every client to exit.
func (s *Server) SessionEnd() {
	s.broadcast(wire.TypeSessionEnd, nil)
}

// lookup resolves a wid; operations on unknown wids are silently ignored.
func (s *Server) lookup(wid uint32) *Window {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.windows[wid]
}
