package server

import (
	"github.com/rs/zerolog/log"

	"aster/internal/wire"
)

// handleMessage dispatches one decoded message. Parse failures are logged
// and tolerated, and unknown wids are silently ignored; the connection
// continues.
func (s *Server) handleMessage(c *Connection, msg *wire.Message) {
	switch msg.Type {
	case wire.TypeHello:
		log.Debug().Str("client", c.id).Msg("hello")
		c.send(wire.TypeWelcome, wire.Welcome{
			DisplayWidth:  uint32(s.width),
			DisplayHeight: uint32(s.height),
		}.Marshal())

	case wire.TypeWindowNew:
		wn, err := wire.ParseWindowNew(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		w := s.createWindow(c, wn.Width, wn.Height)
		log.Debug().Str("client", c.id).Uint32("wid", w.wid).
			Uint32("width", wn.Width).Uint32("height", wn.Height).Msg("window created")
		c.send(wire.TypeWindowInit, wire.WindowInit{
			Wid:    w.wid,
			Width:  uint32(w.width),
			Height: uint32(w.height),
			Bufid:  w.bufid,
		}.Marshal())
		s.notifySubscribers()

	case wire.TypeFlip:
		wf, err := wire.ParseFlip(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(wf.Wid); w != nil {
			s.damageWindow(w)
		}

	case wire.TypeFlipRegion:
		fr, err := wire.ParseFlipRegion(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(fr.Wid); w != nil {
			s.damageWindowRegion(w, rect(int(fr.X), int(fr.Y), int(fr.Width), int(fr.Height)))
		}

	case wire.TypeKeyEvent:
		ke, err := wire.ParseKeyEvent(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		s.handleKeyEvent(ke)

	case wire.TypeMouseEvent:
		me, err := wire.ParseMouseEvent(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		s.handleMouseEvent(me)

	case wire.TypeWindowMove:
		wm, err := wire.ParseWindowMove(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(wm.Wid); w != nil {
			s.moveWindow(w, int(wm.X), int(wm.Y))
		}

	case wire.TypeWindowClose:
		wc, err := wire.ParseWindowClose(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(wc.Wid); w != nil {
			s.markForClose(w)
		}

	case wire.TypeWindowStack:
		ws, err := wire.ParseWindowStack(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(ws.Wid); w != nil {
			s.reorderWindow(w, int(ws.Z))
		}

	case wire.TypeResizeRequest, wire.TypeResizeOffer:
		// A client-echoed offer is honoured like a request.
		rr, err := wire.ParseResize(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(rr.Wid); w != nil {
			s.offerResize(w, rr.Width, rr.Height)
		}

	case wire.TypeResizeAccept:
		ra, err := wire.ParseResize(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(ra.Wid); w != nil {
			bufid := s.beginResize(w, ra.Width, ra.Height)
			c.send(wire.TypeResizeBufid, wire.Resize{
				Wid: w.wid, Width: ra.Width, Height: ra.Height, Bufid: bufid,
			}.Marshal())
		}

	case wire.TypeResizeDone:
		rd, err := wire.ParseResize(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(rd.Wid); w != nil {
			s.commitResize(w, rd.Width, rd.Height)
		}

	case wire.TypeQueryWindows:
		s.queryWindows(c)

	case wire.TypeSubscribe:
		s.subscribe(c)

	case wire.TypeUnsubscribe:
		s.unsubscribe(c)

	case wire.TypeWindowAdvertise:
		ad, err := wire.ParseWindowAdvertise(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(ad.Wid); w != nil {
			s.updateAdvertisement(w, ad)
		}

	case wire.TypeSessionEnd:
		s.SessionEnd()

	case wire.TypeWindowFocus:
		wf, err := wire.ParseWindowFocus(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(wf.Wid); w != nil {
			s.setFocused(w)
		}

	case wire.TypeKeyBind:
		kb, err := wire.ParseKeyBind(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		s.addKeyBind(c, kb)

	case wire.TypeWindowDragStart:
		ds, err := wire.ParseWindowDragStart(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if s.lookup(ds.Wid) != nil {
			s.startMove(wire.ButtonLeft)
			s.storePointer()
		}

	case wire.TypeWindowResizeStart:
		rs, err := wire.ParseWindowResizeStart(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(rs.Wid); w != nil {
			s.renderMu.Lock()
			idle := s.focused == w && s.resizing == nil
			s.renderMu.Unlock()
			if idle {
				s.resizingButton = wire.ButtonLeft
				s.startResize(int(rs.Direction))
				s.storePointer()
			}
		}

	case wire.TypeWindowUpdateShape:
		us, err := wire.ParseWindowUpdateShape(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(us.Wid); w != nil {
			s.renderMu.Lock()
			w.alphaThreshold = int(us.Threshold)
			s.renderMu.Unlock()
		}

	case wire.TypeWindowWarpMouse:
		wm, err := wire.ParseWindowWarpMouse(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(wm.Wid); w != nil {
			s.warpMouse(w, wm.X, wm.Y)
		}

	case wire.TypeWindowShowMouse:
		sm, err := wire.ParseWindowShowMouse(msg.Body)
		if err != nil {
			s.malformed(c, msg, err)
			return
		}
		if w := s.lookup(sm.Wid); w != nil {
			s.setShowMouse(w, int(sm.Mode))
		}

	case wire.TypeGoodbye:
		s.handleDisconnect(c)

	default:
		log.Warn().Str("client", c.id).Uint32("type", msg.Type).Msg("unknown message type")
	}
}

// setShowMouse applies cursor-preference semantics: reset restores the last
// explicit default; hide and normal update the default; richer sprites are
// transient.
func (s *Server) setShowMouse(w *Window, mode int) {
	s.renderMu.Lock()
	switch {
	case mode == wire.CursorReset:
		w.showMouse = w.defaultMouse
	case mode < wire.CursorDrag:
		w.defaultMouse = mode
		w.showMouse = mode
	default:
		w.showMouse = mode
	}
	focused := s.focused == w
	s.renderMu.Unlock()

	if focused {
		cx, cy, cw, ch := cursorCell(s.mouseX, s.mouseY)
		s.damage.add(rect(cx, cy, cw, ch))
	}
}

func (s *Server) malformed(c *Connection, msg *wire.Message, err error) {
	log.Warn().Str("client", c.id).Uint32("type", msg.Type).Err(err).Msg("malformed message")
}
