package server

import (
	"aster/internal/gfx"
	"aster/internal/wire"
)

// unorderWindow removes a window from whichever z slot holds it.
// Caller holds the render lock.
func (s *Server) unorderWindow(w *Window) {
	if s.bottom == w {
		s.bottom = nil
		return
	}
	if s.top == w {
		s.top = nil
		return
	}
	for i, win := range s.middle {
		if win == w {
			s.middle = append(s.middle[:i], s.middle[i+1:]...)
			return
		}
	}
}

// reorderWindow moves a window into the requested slot. The top and bottom
// slots evict their previous occupant into the middle stack.
// Runs on the service thread.
func (s *Server) reorderWindow(w *Window, z int) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.unorderWindow(w)
	w.z = z

	switch z {
	case wire.ZOrderTop:
		if prev := s.top; prev != nil {
			s.unorderWindow(prev)
			prev.z = 1
			s.middle = append(s.middle, prev)
		}
		s.top = w
	case wire.ZOrderBottom:
		if prev := s.bottom; prev != nil {
			s.unorderWindow(prev)
			prev.z = 1
			s.middle = append(s.middle, prev)
		}
		s.bottom = w
	default:
		s.middle = append(s.middle, w)
	}
	s.damage.add(w.bounds())
}

// makeTop raises a middle window to the top of the middle stack.
// Caller holds the render lock.
func (s *Server) makeTop(w *Window) {
	if w.isBottom() || w.isTop() {
		return
	}
	for i, win := range s.middle {
		if win == w {
			s.middle = append(s.middle[:i], s.middle[i+1:]...)
			s.middle = append(s.middle, w)
			return
		}
	}
}

// getFocused returns the focused window, defaulting to the bottom window.
func (s *Server) getFocused() *Window {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if s.focused != nil {
		return s.focused
	}
	return s.bottom
}

// isFocused reports whether the window currently holds focus.
func (s *Server) isFocused(w *Window) bool {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.focused == w
}

// setFocused changes the focused window, notifying the old and new owners
// and raising the newly focused window.
func (s *Server) setFocused(w *Window) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	if w == s.focused {
		return
	}

	if old := s.focused; old != nil {
		old.owner.send(wire.TypeWindowFocusChange, wire.WindowFocusChange{Wid: old.wid}.Marshal())
		s.damageWindow(old)
	}
	s.focused = w
	if w != nil {
		w.owner.send(wire.TypeWindowFocusChange, wire.WindowFocusChange{Wid: w.wid, Focused: 1}.Marshal())
		s.makeTop(w)
		s.damageWindow(w)
	} else {
		// Unsetting focus falls back to the background window.
		s.focused = s.bottom
	}

	s.notifySubscribersLocked()
}

// setFocusedAt focuses whatever window is solid under the screen coordinate.
func (s *Server) setFocusedAt(x, y int) {
	s.setFocused(s.topAt(x, y))
}

// solidAt reports whether the window has a hit-test-solid pixel at the
// given screen coordinate. Missing buffers read as fully transparent.
func (s *Server) solidAt(w *Window, x, y int) bool {
	if w == nil {
		return false
	}
	lx, ly := gfx.DeviceToWindow(x, y, w.x, w.y, w.width, w.height, w.rotation)
	if lx < 0 || lx >= w.width || ly < 0 || ly >= w.height {
		return false
	}
	alpha := 0
	if w.buf != nil && len(w.buf.Data) >= (ly*w.width+lx)*4+4 {
		alpha = int(w.buf.Data[(ly*w.width+lx)*4+3])
	}
	return alpha >= w.alphaThreshold
}

// topAt walks the z-order top → middle (reverse) → bottom and returns the
// first window with a solid pixel at the screen coordinate.
func (s *Server) topAt(x, y int) *Window {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.topAtLocked(x, y)
}

// topAtLocked is topAt for callers already holding the render lock.
func (s *Server) topAtLocked(x, y int) *Window {
	if s.solidAt(s.top, x, y) {
		return s.top
	}
	for i := len(s.middle) - 1; i >= 0; i-- {
		if s.solidAt(s.middle[i], x, y) {
			return s.middle[i]
		}
	}
	if s.solidAt(s.bottom, x, y) {
		return s.bottom
	}
	return nil
}

// forEachWindow visits every stacked window bottom → middle → top.
func (s *Server) forEachWindow(fn func(*Window)) {
	if s.bottom != nil {
		fn(s.bottom)
	}
	for _, w := range s.middle {
		fn(w)
	}
	if s.top != nil {
		fn(s.top)
	}
}
