package server

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"aster/internal/gfx"
	"aster/internal/wire"
)

func rect(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// animLength returns the duration of an animation effect.
func (s *Server) animLength(mode int) time.Duration {
	switch mode {
	case animFadeIn:
		return s.cfg.FadeIn()
	case animFadeOut:
		return s.cfg.FadeOut()
	default:
		return 0
	}
}

// renderLoop drives the compositor at the configured frame cadence until
// the server shuts down.
func (s *Server) renderLoop() {
	ticker := time.NewTicker(s.cfg.FrameInterval())
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.composeFrame()
		}
	}
}

// composeFrame runs one render pass: snapshot damage, redraw the affected
// regions in stacking order, present them, and reap windows whose fade-out
// has finished.
func (s *Server) composeFrame() {
	now := time.Now()
	px, py, pstate := s.loadPointer()

	clips := s.damage.drain()

	// A pointer move damages the old and new cursor cells.
	if px != s.lastMouseX || py != s.lastMouseY {
		ox, oy, cw, ch := cursorCell(s.lastMouseX, s.lastMouseY)
		clips = append(clips, rect(ox, oy, cw, ch))
		nx, ny, _, _ := cursorCell(px, py)
		clips = append(clips, rect(nx, ny, cw, ch))
	}
	s.lastMouseX = px
	s.lastMouseY = py

	s.renderMu.Lock()

	// Animated windows damage themselves every frame.
	s.forEachWindow(func(w *Window) {
		if w.animMode != animNone {
			clips = append(clips, w.bounds())
		}
	})

	if len(clips) == 0 {
		s.renderMu.Unlock()
		s.takeScreenshot()
		return
	}

	var toRemove []*Window
	s.forEachWindow(func(w *Window) {
		if !s.blitWindow(w, clips, now) {
			toRemove = append(toRemove, w)
		}
	})

	if s.resizing != nil {
		s.drawResizeOutline(clips)
	}

	if s.drawCursor {
		hovered := s.topAtLocked(px/mouseScale, py/mouseScale)
		if hovered == nil || hovered.showMouse != wire.CursorHide {
			sprite := s.cursorSprite(pstate, hovered)
			if sprite != s.lastSprite {
				// The sprite changed shape in place; clean the cell up
				// next pass too.
				cx, cy, cw, ch := cursorCell(px, py)
				s.damage.add(rect(cx, cy, cw, ch))
				s.lastSprite = sprite
			}
			gfx.DrawSprite(s.back, sprite, image.Pt(px/mouseScale-gfx.HotspotX, py/mouseScale-gfx.HotspotY), clips)
		}
	}

	// Present the damaged regions.
	front := s.backend.Front()
	for _, clip := range clips {
		clip = clip.Intersect(s.back.Bounds())
		if clip.Empty() {
			continue
		}
		draw.Draw(front, clip, s.back, clip.Min, draw.Src)
	}
	if err := s.backend.Flush(clips); err != nil {
		log.Error().Err(err).Msg("display flush failed")
	}

	for _, w := range toRemove {
		s.destroyWindow(w)
	}

	s.renderMu.Unlock()

	s.takeScreenshot()
}

// blitWindow composites one window into the back buffer within the clip
// set. Returns false when the window's fade-out has completed and it should
// be removed.
func (s *Server) blitWindow(w *Window, clips []image.Rectangle, now time.Time) bool {
	middle := !w.isBottom() && !w.isTop()

	rotation := 0
	if middle {
		rotation = w.rotation
	}

	alpha := 1.0
	scale := 1.0

	if w.animMode != animNone {
		elapsed := now.Sub(w.animStart)
		length := s.animLength(w.animMode)
		if elapsed >= length {
			if w.animMode == animFadeOut {
				return false
			}
			w.animMode = animNone
		} else {
			t := float64(elapsed) / float64(length)
			if w.animMode == animFadeOut {
				t = 1 - t
			}
			alpha = t
			if middle {
				scale = 0.75 + t*0.25
			}
		}
	}

	m := gfx.WindowAffine(w.x, w.y, w.width, w.height, rotation, scale)
	gfx.Blit(s.back, w.surface(), m, clips, alpha)
	return true
}

// drawResizeOutline draws the pending-geometry box over the window being
// interactively resized. Caller holds the render lock.
func (s *Server) drawResizeOutline(clips []image.Rectangle) {
	w := s.resizing
	corners := [4][2]int{
		{s.resizingOffX, s.resizingOffY},
		{s.resizingOffX + s.resizingW, s.resizingOffY},
		{s.resizingOffX + s.resizingW, s.resizingOffY + s.resizingH},
		{s.resizingOffX, s.resizingOffY + s.resizingH},
	}
	var pts [4]image.Point
	for i, c := range corners {
		dx, dy := gfx.WindowToDevice(c[0], c[1], w.x, w.y, w.width, w.height, w.rotation)
		pts[i] = image.Pt(dx, dy)
	}
	gfx.FillQuad(s.back, pts, color.RGBA{0x54, 0x8C, 0xFF, 0x80}, clips)
	gfx.StrokeQuad(s.back, pts, 2, color.RGBA{0x00, 0x66, 0xFF, 0xE6}, clips)
}

// cursorSprite selects the sprite for the current interaction, falling back
// to the hovered window's preference and then the arrow.
func (s *Server) cursorSprite(state int, hovered *Window) *image.RGBA {
	if s.resizing != nil {
		switch s.resizingDir {
		case wire.ScaleUp, wire.ScaleDown:
			return s.sprites.ResizeV
		case wire.ScaleLeft, wire.ScaleRight:
			return s.sprites.ResizeH
		case wire.ScaleDownRight, wire.ScaleUpLeft:
			return s.sprites.DiagA
		case wire.ScaleDownLeft, wire.ScaleUpRight:
			return s.sprites.DiagB
		}
	}
	if state == stateMoving {
		return s.sprites.Drag
	}
	if hovered != nil {
		switch hovered.showMouse {
		case wire.CursorDrag:
			return s.sprites.Drag
		case wire.CursorResizeVertical:
			return s.sprites.ResizeV
		case wire.CursorResizeHorizontal:
			return s.sprites.ResizeH
		case wire.CursorResizeUpDown:
			return s.sprites.DiagA
		case wire.CursorResizeDownUp:
			return s.sprites.DiagB
		}
	}
	return s.sprites.Arrow
}

// takeScreenshot services a latched screenshot request.
func (s *Server) takeScreenshot() {
	frame := s.screenshotFrame.Swap(screenshotNone)
	if frame == screenshotNone {
		return
	}

	var shot *image.RGBA
	s.renderMu.Lock()
	switch frame {
	case screenshotFull:
		shot = cloneImage(s.back)
	case screenshotWindow:
		if s.focused != nil {
			shot = cloneImage(s.focused.surface())
		}
	}
	s.renderMu.Unlock()

	if shot == nil {
		return
	}
	f, err := os.Create(s.cfg.ScreenshotPath)
	if err != nil {
		log.Error().Err(err).Msg("screenshot create failed")
		return
	}
	defer f.Close()
	if err := png.Encode(f, shot); err != nil {
		log.Error().Err(err).Msg("screenshot encode failed")
	}
	log.Info().Str("path", s.cfg.ScreenshotPath).Msg("screenshot written")
}

func cloneImage(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
