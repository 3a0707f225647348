package server

import (
	"github.com/rs/zerolog/log"

	"aster/internal/gfx"
	"aster/internal/wire"
)

// Pointer interaction states.
const (
	stateNormal = iota
	stateMoving
	stateDragging
	stateResizing
)

// mouseScale oversamples the pointer position: each screen pixel is three
// internal units, preserving sub-pixel motion from high-resolution mice.
const mouseScale = 3

// cursorCell returns the screen rectangle covered by the cursor sprite at
// the given internal pointer position.
func cursorCell(mx, my int) (x, y, w, h int) {
	return mx/mouseScale - gfx.HotspotX, my/mouseScale - gfx.HotspotY, gfx.CursorWidth, gfx.CursorHeight
}

// sendMouse routes a window mouse event to the window's owner in
// window-local coordinates.
func (s *Server) sendMouse(w *Window, newX, newY, oldX, oldY int, buttons uint32, command uint8) {
	if w == nil {
		return
	}
	w.owner.send(wire.TypeWindowMouseEvent, wire.WindowMouseEvent{
		Wid:     w.wid,
		NewX:    int32(newX),
		NewY:    int32(newY),
		OldX:    int32(oldX),
		OldY:    int32(oldY),
		Buttons: uint8(buttons),
		Command: command,
	}.Marshal())
}

// startMove begins an interactive window move at the current pointer
// position. Top and bottom windows stay put; a tiled window is untiled and
// offered its free-floating size back.
func (s *Server) startMove(_ uint32) {
	s.setFocusedAt(s.mouseX/mouseScale, s.mouseY/mouseScale)
	s.mouseWin = s.getFocused()
	if s.mouseWin == nil {
		return
	}
	if s.mouseWin.isBottom() || s.mouseWin.isTop() {
		s.mouseState = stateNormal
		s.mouseWin = nil
		return
	}

	if s.mouseWin.tiled {
		s.mouseWin.tiled = false
		s.offerResize(s.mouseWin, uint32(s.mouseWin.untiledWidth), uint32(s.mouseWin.untiledHeight))
	}

	s.mouseState = stateMoving
	s.mouseInitX = s.mouseX
	s.mouseInitY = s.mouseY
	s.mouseWinX = s.mouseWin.x
	s.mouseWinY = s.mouseWin.y

	cx, cy, cw, ch := cursorCell(s.mouseX, s.mouseY)
	s.damage.add(rect(cx, cy, cw, ch))

	s.renderMu.Lock()
	s.makeTop(s.mouseWin)
	s.renderMu.Unlock()
}

// startResize begins an interactive resize. An auto direction is resolved
// from the pointer's cell in the window's 3×3 partition, defaulting to
// down-right from dead centre.
func (s *Server) startResize(direction int) {
	s.setFocusedAt(s.mouseX/mouseScale, s.mouseY/mouseScale)
	s.mouseWin = s.getFocused()
	if s.mouseWin == nil {
		return
	}
	if s.mouseWin.isBottom() || s.mouseWin.isTop() {
		// The panel and wallpaper keep their size.
		s.mouseState = stateNormal
		s.mouseWin = nil
		return
	}

	log.Debug().Uint32("wid", s.mouseWin.wid).Msg("resize starting")
	s.mouseState = stateResizing
	s.mouseInitX = s.mouseX
	s.mouseInitY = s.mouseY
	s.mouseWinX = s.mouseWin.x
	s.mouseWinY = s.mouseWin.y

	s.renderMu.Lock()
	s.resizing = s.mouseWin
	s.resizingW = s.mouseWin.width
	s.resizingH = s.mouseWin.height
	s.resizingOffX = 0
	s.resizingOffY = 0

	if direction == wire.ScaleAuto {
		lx, ly := gfx.DeviceToWindow(s.mouseX/mouseScale, s.mouseY/mouseScale,
			s.resizing.x, s.resizing.y, s.resizing.width, s.resizing.height, s.resizing.rotation)

		hd, vd := 0, 0
		if ly <= s.resizingH/3 {
			vd = -1
		} else if ly >= s.resizingH/3*2 {
			vd = 1
		}
		if lx <= s.resizingW/3 {
			hd = -1
		} else if lx >= s.resizingW/3*2 {
			hd = 1
		}

		switch {
		case hd == 0 && vd == 0:
			direction = wire.ScaleDownRight
		case hd == 1 && vd == 1:
			direction = wire.ScaleDownRight
		case hd == 1 && vd == -1:
			direction = wire.ScaleUpRight
		case hd == -1 && vd == 1:
			direction = wire.ScaleDownLeft
		case hd == -1 && vd == -1:
			direction = wire.ScaleUpLeft
		case hd == 1:
			direction = wire.ScaleRight
		case hd == -1:
			direction = wire.ScaleLeft
		case vd == 1:
			direction = wire.ScaleDown
		default:
			direction = wire.ScaleUp
		}
	}
	s.resizingDir = direction
	s.makeTop(s.mouseWin)
	s.renderMu.Unlock()

	s.damageWindow(s.mouseWin)
}

// handleMouseEvent advances the pointer state machine with one device
// packet. Runs on the service thread.
func (s *Server) handleMouseEvent(me wire.MouseEvent) {
	defer s.storePointer()

	switch me.Kind {
	case wire.MouseRelative:
		// Relative deltas are y-up per the device contract.
		s.mouseX += int(me.DX) * mouseScale
		s.mouseY -= int(me.DY) * mouseScale
	case wire.MouseAbsolute:
		s.mouseX = int(me.DX) * mouseScale
		s.mouseY = int(me.DY) * mouseScale
	}

	s.mouseX = clamp(s.mouseX, 0, s.width*mouseScale)
	s.mouseY = clamp(s.mouseY, 0, s.height*mouseScale)

	buttons := me.Buttons
	altHeld := s.kbdMods&wire.ModAnyAlt != 0

	switch s.mouseState {
	case stateNormal:
		switch {
		case buttons&wire.ButtonLeft != 0 && altHeld:
			s.startMove(buttons)

		case buttons&s.resizeButton != 0 && altHeld:
			s.resizingButton = s.resizeButton
			s.startResize(wire.ScaleAuto)

		case buttons&wire.ButtonLeft != 0:
			s.mouseState = stateDragging
			s.setFocusedAt(s.mouseX/mouseScale, s.mouseY/mouseScale)
			s.mouseWin = s.getFocused()
			s.mouseMoved = false
			s.mouseDragButton = wire.ButtonLeft
			if s.mouseWin != nil {
				s.mouseClickX, s.mouseClickY = gfx.DeviceToWindow(
					s.mouseX/mouseScale, s.mouseY/mouseScale,
					s.mouseWin.x, s.mouseWin.y, s.mouseWin.width, s.mouseWin.height, s.mouseWin.rotation)
				s.sendMouse(s.mouseWin, s.mouseClickX, s.mouseClickY, -1, -1, buttons, wire.MouseDown)
			}

		default:
			s.mouseWin = s.getFocused()
			if s.mouseWin != nil {
				lx, ly := gfx.DeviceToWindow(s.mouseX/mouseScale, s.mouseY/mouseScale,
					s.mouseWin.x, s.mouseWin.y, s.mouseWin.width, s.mouseWin.height, s.mouseWin.rotation)
				s.sendMouse(s.mouseWin, lx, ly, -1, -1, buttons, wire.MouseMove)
			}

			s.renderMu.Lock()
			hovered := s.topAtLocked(s.mouseX/mouseScale, s.mouseY/mouseScale)
			prevHover := s.hover
			if hovered != nil && hovered != prevHover {
				s.hover = hovered
			}
			s.renderMu.Unlock()

			if hovered != nil {
				if hovered != prevHover {
					lx, ly := gfx.DeviceToWindow(s.mouseX/mouseScale, s.mouseY/mouseScale,
						hovered.x, hovered.y, hovered.width, hovered.height, hovered.rotation)
					s.sendMouse(hovered, lx, ly, -1, -1, buttons, wire.MouseEnter)
					if prevHover != nil {
						ox, oy := gfx.DeviceToWindow(s.mouseX/mouseScale, s.mouseY/mouseScale,
							prevHover.x, prevHover.y, prevHover.width, prevHover.height, prevHover.rotation)
						s.sendMouse(prevHover, ox, oy, -1, -1, buttons, wire.MouseLeave)
					}
				}
				if hovered != s.mouseWin {
					lx, ly := gfx.DeviceToWindow(s.mouseX/mouseScale, s.mouseY/mouseScale,
						hovered.x, hovered.y, hovered.width, hovered.height, hovered.rotation)
					s.sendMouse(hovered, lx, ly, -1, -1, buttons, wire.MouseMove)
				}
			}
		}

	case stateMoving:
		if buttons&wire.ButtonLeft == 0 {
			s.mouseWin = nil
			s.mouseState = stateNormal
			cx, cy, cw, ch := cursorCell(s.mouseX, s.mouseY)
			s.damage.add(rect(cx, cy, cw, ch))
			break
		}
		if s.mouseY/mouseScale < 2 {
			// Dragged to the very top: snap to the whole usable area.
			s.tileWindow(s.mouseWin, 1, 1, 0, 0)
			s.mouseWin = nil
			s.mouseState = stateNormal
			break
		}
		x := s.mouseWinX + (s.mouseX-s.mouseInitX)/mouseScale
		y := s.mouseWinY + (s.mouseY-s.mouseInitY)/mouseScale
		s.moveWindow(s.mouseWin, x, y)

	case stateDragging:
		if buttons&s.mouseDragButton == 0 {
			// Released: a motionless press-release is a click, anything
			// else raises.
			s.mouseState = stateNormal
			oldX, oldY := s.mouseClickX, s.mouseClickY
			if s.mouseWin != nil {
				s.mouseClickX, s.mouseClickY = gfx.DeviceToWindow(
					s.mouseX/mouseScale, s.mouseY/mouseScale,
					s.mouseWin.x, s.mouseWin.y, s.mouseWin.width, s.mouseWin.height, s.mouseWin.rotation)
				if !s.mouseMoved {
					s.sendMouse(s.mouseWin, s.mouseClickX, s.mouseClickY, -1, -1, buttons, wire.MouseClick)
				} else {
					s.sendMouse(s.mouseWin, s.mouseClickX, s.mouseClickY, oldX, oldY, buttons, wire.MouseRaise)
				}
			}
			break
		}
		if s.mouseWin != nil {
			oldX, oldY := s.mouseClickX, s.mouseClickY
			s.mouseClickX, s.mouseClickY = gfx.DeviceToWindow(
				s.mouseX/mouseScale, s.mouseY/mouseScale,
				s.mouseWin.x, s.mouseWin.y, s.mouseWin.width, s.mouseWin.height, s.mouseWin.rotation)
			if oldX != s.mouseClickX || oldY != s.mouseClickY {
				s.mouseMoved = true
				s.sendMouse(s.mouseWin, s.mouseClickX, s.mouseClickY, oldX, oldY, buttons, wire.MouseDrag)
			}
		}

	case stateResizing:
		s.continueResize(buttons)
	}
}

// continueResize recomputes the pending geometry from the pointer delta,
// constrained by the anchor direction, and finishes the interaction when
// the initiating button is released.
func (s *Server) continueResize(buttons uint32) {
	widthDiff := (s.mouseX - s.mouseInitX) / mouseScale
	heightDiff := (s.mouseY - s.mouseInitY) / mouseScale

	s.renderMu.Lock()
	w := s.resizing
	if w == nil {
		s.renderMu.Unlock()
		s.mouseState = stateNormal
		return
	}

	s.damageWindowRegion(w, s.resizeOutline())

	switch s.resizingDir {
	case wire.ScaleUp, wire.ScaleDown:
		widthDiff = 0
		s.resizingOffX = 0
	case wire.ScaleLeft, wire.ScaleRight:
		heightDiff = 0
		s.resizingOffY = 0
	}

	switch s.resizingDir {
	case wire.ScaleLeft, wire.ScaleUpLeft, wire.ScaleDownLeft:
		s.resizingOffX = widthDiff
		widthDiff = -widthDiff
	case wire.ScaleRight, wire.ScaleUpRight, wire.ScaleDownRight:
		s.resizingOffX = 0
	}

	switch s.resizingDir {
	case wire.ScaleUp, wire.ScaleUpLeft, wire.ScaleUpRight:
		s.resizingOffY = heightDiff
		heightDiff = -heightDiff
	case wire.ScaleDown, wire.ScaleDownLeft, wire.ScaleDownRight:
		s.resizingOffY = 0
	}

	s.resizingW = max(w.width+widthDiff, 0)
	s.resizingH = max(w.height+heightDiff, 0)
	s.resizingOffX = min(s.resizingOffX, w.width)
	s.resizingOffY = min(s.resizingOffY, w.height)

	s.damageWindowRegion(w, s.resizeOutline())

	done := buttons&s.resizingButton == 0
	newW, newH := s.resizingW, s.resizingH
	offX, offY := s.resizingOffX, s.resizingOffY
	if done {
		s.resizing = nil
	}
	s.renderMu.Unlock()

	if done {
		log.Debug().Int("width", newW).Int("height", newH).Msg("resize complete")
		s.moveWindow(w, w.x+offX, w.y+offY)
		s.offerResize(w, uint32(newW), uint32(newH))
		s.mouseWin = nil
		s.mouseState = stateNormal
	}
}

// warpMouse synthesizes an absolute pointer event at a window-local
// coordinate; only the focused window may warp.
func (s *Server) warpMouse(w *Window, x, y int32) {
	if !s.isFocused(w) {
		return
	}
	dx, dy := gfx.WindowToDevice(int(x), int(y), w.x, w.y, w.width, w.height, w.rotation)
	s.handleMouseEvent(wire.MouseEvent{DX: int32(dx), DY: int32(dy), Kind: wire.MouseAbsolute})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
