package server

import (
	"aster/internal/wire"
)

// keyCombo identifies a registered binding: exact key and modifier mask.
type keyCombo struct {
	key  uint32
	mods uint32
}

// keyBinding records who owns a combo and whether they steal it.
type keyBinding struct {
	owner    *Connection
	response int32
}

// Screenshot requests latched for the render thread.
const (
	screenshotNone = iota
	screenshotFull
	screenshotWindow
)

// addKeyBind registers or replaces a binding. Last registration wins.
// Runs on the service thread.
func (s *Server) addKeyBind(owner *Connection, kb wire.KeyBind) {
	s.binds[keyCombo{key: kb.Key, mods: kb.Modifiers}] = &keyBinding{owner: owner, response: kb.Response}
}

// dropKeyBinds removes every binding owned by a departing connection.
func (s *Server) dropKeyBinds(owner *Connection) {
	for combo, bind := range s.binds {
		if bind.owner == owner {
			delete(s.binds, combo)
		}
	}
}

// rotateFocused adjusts a middle window's rotation. delta of zero resets.
func (s *Server) rotateFocused(w *Window, delta int) {
	if w.isBottom() || w.isTop() {
		return
	}
	s.damageWindow(w)
	s.renderMu.Lock()
	if delta == 0 {
		w.rotation = 0
	} else {
		w.rotation += delta
	}
	s.renderMu.Unlock()
	s.damageWindow(w)
}

// handleKeyEvent processes one keyboard event: compositor-reserved combos
// first, then registered bindings, then the focused window's client.
// Runs on the service thread.
func (s *Server) handleKeyEvent(ke wire.KeyEvent) {
	s.kbdMods = ke.StateMods
	focused := s.getFocused()

	if focused != nil && ke.Action == wire.KeyActionDown {
		if s.handleReservedKey(focused, ke) {
			return
		}
	}

	// Bindings registered by clients.
	if bind, ok := s.binds[keyCombo{key: ke.Keycode, mods: ke.Modifiers}]; ok {
		out := ke
		if focused != nil {
			out.Wid = focused.wid
		} else {
			out.Wid = ^uint32(0)
		}
		bind.owner.send(wire.TypeKeyEvent, out.Marshal())
		if bind.response == wire.BindSteal {
			return
		}
	}

	// Finally, the focused client.
	if focused != nil {
		out := ke
		out.Wid = focused.wid
		focused.owner.send(wire.TypeKeyEvent, out.Marshal())
	}
}

// handleReservedKey handles compositor shortcuts. Reports true when the
// event was consumed.
func (s *Server) handleReservedKey(focused *Window, ke wire.KeyEvent) bool {
	mods := ke.Modifiers
	ctrlShift := mods&wire.ModAnyCtrl != 0 && mods&wire.ModAnyShift != 0
	middle := !focused.isBottom() && !focused.isTop()

	if ctrlShift {
		switch ke.Keycode {
		case 'z':
			s.rotateFocused(focused, -5)
			return true
		case 'x':
			s.rotateFocused(focused, 5)
			return true
		case 'c':
			s.rotateFocused(focused, 0)
			return true
		}
	}

	if mods&wire.ModAnyAlt != 0 {
		switch ke.Keycode {
		case wire.KeyF10:
			if middle {
				s.tileWindow(focused, 1, 1, 0, 0)
				return true
			}
		case wire.KeyF4:
			if middle {
				focused.owner.send(wire.TypeSessionEnd, nil)
				return true
			}
		}
	}

	// Tiling and screenshot hooks live under the super key.
	if mods&wire.ModAnySuper != 0 {
		shift := mods&wire.ModAnyShift != 0
		ctrl := mods&wire.ModAnyCtrl != 0

		switch {
		case shift && ke.Keycode == wire.KeyArrowLeft && middle:
			s.tileWindow(focused, 2, 2, 0, 0)
			return true
		case shift && ke.Keycode == wire.KeyArrowRight && middle:
			s.tileWindow(focused, 2, 2, 1, 0)
			return true
		case ctrl && ke.Keycode == wire.KeyArrowLeft && middle:
			s.tileWindow(focused, 2, 2, 0, 1)
			return true
		case ctrl && ke.Keycode == wire.KeyArrowRight && middle:
			s.tileWindow(focused, 2, 2, 1, 1)
			return true
		case ke.Keycode == wire.KeyArrowLeft && middle:
			s.tileWindow(focused, 2, 1, 0, 0)
			return true
		case ke.Keycode == wire.KeyArrowRight && middle:
			s.tileWindow(focused, 2, 1, 1, 0)
			return true
		case ke.Keycode == wire.KeyArrowUp && middle:
			s.tileWindow(focused, 1, 2, 0, 0)
			return true
		case ke.Keycode == wire.KeyArrowDown && middle:
			s.tileWindow(focused, 1, 2, 0, 1)
			return true
		case ctrl && ke.Keycode == 's':
			s.screenshotFrame.Store(screenshotFull)
			return true
		case ctrl && ke.Keycode == 'w':
			s.screenshotFrame.Store(screenshotWindow)
			return true
		}
	}

	return false
}
