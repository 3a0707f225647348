package server

import (
	"image"

	"github.com/rs/zerolog/log"

	"aster/internal/shm"
	"aster/internal/wire"
)

// beginResize allocates the pending buffer for a resize handshake and
// returns its bufid. Idempotent: a handshake already in flight keeps its
// pending buffer, whatever size was first asked for.
// Runs on the service thread.
func (s *Server) beginResize(w *Window, width, height uint32) uint32 {
	if w.newBufid != 0 {
		return w.newBufid
	}
	w.newBufid = s.nextBufid
	s.nextBufid++

	buf, err := shm.Create(shm.KeyFor(s.ident, w.newBufid), int(width)*int(height)*4)
	if err != nil {
		log.Error().Uint32("wid", w.wid).Err(err).Msg("resize buffer allocation failed")
	} else {
		w.newBuf = buf
	}
	return w.newBufid
}

// commitResize swaps the pending buffer in, releases the old one, and
// damages both the old and new extents. The swap is serialised against the
// render thread. A window with no pending resize is left untouched.
// Runs on the service thread.
func (s *Server) commitResize(w *Window, width, height uint32) {
	if w.newBufid == 0 {
		return
	}

	s.damageWindow(w)

	s.renderMu.Lock()
	oldBuf := w.buf

	w.width = int(width)
	w.height = int(height)
	w.bufid = w.newBufid
	w.buf = w.newBuf

	w.newBufid = 0
	w.newBuf = nil
	s.renderMu.Unlock()

	if oldBuf != nil {
		oldBuf.Release()
	}

	s.damageWindow(w)
}

// offerResize sends an unsolicited or solicited resize offer to a window's
// owner. The offer carries no buffer; that comes with the accept.
func (s *Server) offerResize(w *Window, width, height uint32) {
	w.owner.send(wire.TypeResizeOffer, wire.Resize{Wid: w.wid, Width: width, Height: height}.Marshal())
}

// panelHeight returns what the top (panel) window reserves of the display.
// A panel nudged above the screen edge shrinks its share.
// Caller holds the render lock.
func (s *Server) panelHeight() (panelH int) {
	if panel := s.top; panel != nil {
		panelH = panel.height
		if panel.y < 1 {
			panelH += panel.y
		}
	}
	return panelH
}

// tileWindow snaps a window to a cell of a width×height grid over the
// usable display area, saving its free-floating size the first time.
func (s *Server) tileWindow(w *Window, widthDiv, heightDiv, cellX, cellY int) {
	s.renderMu.Lock()
	panelH := s.panelHeight()

	if !w.tiled {
		w.untiledWidth = w.width
		w.untiledHeight = w.height
		w.tiled = true
	}
	s.renderMu.Unlock()

	tileW := s.width / widthDiv
	tileH := (s.height - panelH) / heightDiv

	s.moveWindow(w, tileW*cellX, panelH+tileH*cellY)
	s.offerResize(w, uint32(tileW), uint32(tileH))
}

// moveWindow repositions a window, damaging both extents and echoing the
// final position to the owner.
func (s *Server) moveWindow(w *Window, x, y int) {
	s.damageWindow(w)
	s.renderMu.Lock()
	w.x = x
	w.y = y
	s.renderMu.Unlock()
	s.damageWindow(w)

	w.owner.send(wire.TypeWindowMove, wire.WindowMove{Wid: w.wid, X: int32(x), Y: int32(y)}.Marshal())
}

// resizeOutline returns the current interactive-resize rectangle in window
// coordinates, with the margin used for outline damage.
func (s *Server) resizeOutline() image.Rectangle {
	return image.Rect(
		s.resizingOffX-2, s.resizingOffY-2,
		s.resizingOffX+s.resizingW+8, s.resizingOffY+s.resizingH+8,
	)
}
