package server

import (
	"image"
	"time"

	"github.com/rs/zerolog/log"

	"aster/internal/gfx"
	"aster/internal/shm"
	"aster/internal/wire"
)

// Animation effects.
const (
	animNone = iota
	animFadeIn
	animFadeOut
)

// Window is the server-side record of one client surface.
type Window struct {
	wid   uint32
	owner *Connection

	x, y int
	z    int

	width, height int

	bufid uint32
	buf   *shm.Buffer // nil when acquisition failed; reads as transparent

	// Pending buffer during a resize handshake.
	newBufid uint32
	newBuf   *shm.Buffer

	rotation int // degrees; middle windows only

	// alphaThreshold is 0..256: hit-test solidity cutoff. 256 means every
	// click passes through.
	alphaThreshold int

	showMouse    int
	defaultMouse int

	animMode  int
	animStart time.Time

	tiled                       bool
	untiledWidth, untiledHeight int

	// Client advertisement payload for listers.
	clientFlags   uint32
	clientOffsets [5]uint16
	clientStrings []byte
}

// surface returns the window's active buffer as an image, or nil.
func (w *Window) surface() *image.RGBA {
	if w.buf == nil {
		return nil
	}
	return gfx.Surface(w.buf.Data, w.width, w.height)
}

// bounds returns the window's screen extent: the axis-aligned bounding box
// of its (possibly rotated) rectangle.
func (w *Window) bounds() image.Rectangle {
	return gfx.RotatedBounds(w.x, w.y, w.width, w.height, w.rotation, image.Rect(0, 0, w.width, w.height))
}

// isBottom reports whether the window occupies the bottom slot.
func (w *Window) isBottom() bool { return w.z == wire.ZOrderBottom }

// isTop reports whether the window occupies the top slot.
func (w *Window) isTop() bool { return w.z == wire.ZOrderTop }

// createWindow reserves a fresh wid and buffer, stacks the window at the
// end of the middle z-order, and registers it under its owner.
// Runs on the service thread.
func (s *Server) createWindow(owner *Connection, width, height uint32) *Window {
	w := &Window{
		wid:          s.nextWid,
		owner:        owner,
		z:            1,
		width:        int(width),
		height:       int(height),
		bufid:        s.nextBufid,
		showMouse:    wire.CursorNormal,
		defaultMouse: wire.CursorNormal,
		animMode:     animFadeIn,
		animStart:    time.Now(),
	}
	s.nextWid++
	s.nextBufid++

	buf, err := shm.Create(shm.KeyFor(s.ident, w.bufid), w.width*w.height*4)
	if err != nil {
		log.Error().Uint32("wid", w.wid).Err(err).Msg("window buffer allocation failed")
	} else {
		w.buf = buf
	}

	s.renderMu.Lock()
	s.windows[w.wid] = w
	s.middle = append(s.middle, w)
	owner.windows = append(owner.windows, w)
	s.renderMu.Unlock()

	return w
}

// damageWindow marks the window's whole extent for redraw.
func (s *Server) damageWindow(w *Window) {
	s.damageWindowRegion(w, image.Rect(0, 0, w.width, w.height))
}

// damageWindowRegion marks a window-relative rectangle for redraw. Rotated
// windows damage the bounding box of the rotated corners.
func (s *Server) damageWindowRegion(w *Window, rel image.Rectangle) {
	s.damage.add(gfx.RotatedBounds(w.x, w.y, w.width, w.height, w.rotation, rel))
}

// markForClose begins the window's fade-out; the render thread removes it
// once the animation has completed.
func (s *Server) markForClose(w *Window) {
	s.renderMu.Lock()
	w.animMode = animFadeOut
	w.animStart = time.Now()
	s.renderMu.Unlock()
}

// destroyWindow physically removes a window and frees its buffers.
// Runs on the render thread with the render lock held.
func (s *Server) destroyWindow(w *Window) {
	delete(s.windows, w.wid)
	s.unorderWindow(w)
	w.owner.removeWindow(w)

	s.damageWindowRegion(w, image.Rect(0, 0, w.width, w.height))

	if s.focused == w {
		s.focused = nil
	}
	if s.hover == w {
		s.hover = nil
	}
	if s.resizing == w {
		s.resizing = nil
	}

	if w.buf != nil {
		w.buf.Release()
		w.buf = nil
	}
	if w.newBuf != nil {
		w.newBuf.Release()
		w.newBuf = nil
	}

	log.Debug().Uint32("wid", w.wid).Str("client", w.owner.id).Msg("window destroyed")
	s.notifySubscribersLocked()
}

// adFlags merges the client's advertisement flags with the focused bit.
func (s *Server) adFlags(w *Window) uint32 {
	flags := w.clientFlags
	if w == s.focused {
		flags |= 1
	}
	return flags
}

// updateAdvertisement stores a client's lister payload.
func (s *Server) updateAdvertisement(w *Window, ad wire.WindowAdvertise) {
	w.clientFlags = ad.Flags
	w.clientOffsets = ad.Offsets
	w.clientStrings = ad.Strings
	s.notifySubscribers()
}
