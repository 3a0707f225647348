package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"aster/internal/wire"
)

func altTab(stateMods uint32) wire.KeyEvent {
	return wire.KeyEvent{
		Keycode:   '\t',
		Modifiers: wire.ModLeftAlt,
		Action:    wire.KeyActionDown,
		Key:       '\t',
		StateMods: stateMods,
	}
}

func TestKeyBindPassthrough(t *testing.T) {
	s := newTestServer(t, 640, 480)
	switcher, switcherSink := attachClient(t, s)
	app, appSink := attachClient(t, s)

	w := s.createWindow(app, 100, 100)
	s.setFocused(w)
	drainSink(appSink)

	s.addKeyBind(switcher, wire.KeyBind{Key: '\t', Modifiers: wire.ModLeftAlt, Response: wire.BindPassthrough})
	s.handleKeyEvent(altTab(wire.ModLeftAlt))

	bound := switcherSink.waitFor(t, wire.TypeKeyEvent)
	be, _ := wire.ParseKeyEvent(bound.Body)
	if be.Wid != w.wid {
		t.Errorf("binding event wid = %d, want the focused wid %d", be.Wid, w.wid)
	}
	appSink.waitFor(t, wire.TypeKeyEvent)
}

func TestKeyBindSteal(t *testing.T) {
	s := newTestServer(t, 640, 480)
	switcher, switcherSink := attachClient(t, s)
	app, appSink := attachClient(t, s)

	w := s.createWindow(app, 100, 100)
	s.setFocused(w)
	drainSink(appSink)

	s.addKeyBind(switcher, wire.KeyBind{Key: '\t', Modifiers: wire.ModLeftAlt, Response: wire.BindSteal})
	s.handleKeyEvent(altTab(wire.ModLeftAlt))

	switcherSink.waitFor(t, wire.TypeKeyEvent)
	if msg := appSink.tryNext(50 * time.Millisecond); msg != nil && msg.Type == wire.TypeKeyEvent {
		t.Error("stolen key reached the focused client")
	}
}

func TestRotationKeys(t *testing.T) {
	s := newTestServer(t, 640, 480)
	c, _ := attachClient(t, s)
	w := s.createWindow(c, 100, 100)
	s.setFocused(w)

	press := func(key uint32) {
		s.handleKeyEvent(wire.KeyEvent{
			Keycode:   key,
			Modifiers: wire.ModLeftCtrl | wire.ModLeftShift,
			Action:    wire.KeyActionDown,
		})
	}

	press('x')
	press('x')
	if w.rotation != 10 {
		t.Errorf("rotation = %d, want 10", w.rotation)
	}
	press('z')
	if w.rotation != 5 {
		t.Errorf("rotation = %d, want 5", w.rotation)
	}
	press('c')
	if w.rotation != 0 {
		t.Errorf("rotation = %d, want reset to 0", w.rotation)
	}
}

func TestRotationSkipsTopSlot(t *testing.T) {
	s := newTestServer(t, 640, 480)
	c, _ := attachClient(t, s)
	w := s.createWindow(c, 640, 24)
	s.reorderWindow(w, wire.ZOrderTop)
	s.renderMu.Lock()
	s.focused = w
	s.renderMu.Unlock()

	s.handleKeyEvent(wire.KeyEvent{
		Keycode:   'x',
		Modifiers: wire.ModLeftCtrl | wire.ModLeftShift,
		Action:    wire.KeyActionDown,
	})
	if w.rotation != 0 {
		t.Error("top-slot window must not rotate")
	}
}

func TestAltF4SendsSessionEnd(t *testing.T) {
	s := newTestServer(t, 640, 480)
	c, k := attachClient(t, s)
	w := s.createWindow(c, 100, 100)
	s.setFocused(w)
	drainSink(k)

	s.handleKeyEvent(wire.KeyEvent{
		Keycode:   wire.KeyF4,
		Modifiers: wire.ModLeftAlt,
		Action:    wire.KeyActionDown,
	})
	k.waitFor(t, wire.TypeSessionEnd)
}

func TestSuperArrowTilesHalf(t *testing.T) {
	s := newTestServer(t, 1024, 768)
	c, k := attachClient(t, s)
	w := s.createWindow(c, 300, 200)
	s.setFocused(w)
	drainSink(k)

	s.handleKeyEvent(wire.KeyEvent{
		Keycode:   wire.KeyArrowRight,
		Modifiers: wire.ModLeftSuper,
		Action:    wire.KeyActionDown,
	})

	offer := k.waitFor(t, wire.TypeResizeOffer)
	r, _ := wire.ParseResize(offer.Body)
	if r.Width != 512 || r.Height != 768 {
		t.Errorf("offer %dx%d, want right half 512x768", r.Width, r.Height)
	}
	if w.x != 512 || w.y != 0 {
		t.Errorf("window at (%d,%d), want (512,0)", w.x, w.y)
	}
	if !w.tiled {
		t.Error("tiling shortcut should set the tiled flag")
	}
}

func TestSuperShiftArrowTilesQuadrant(t *testing.T) {
	s := newTestServer(t, 1024, 768)
	c, k := attachClient(t, s)
	w := s.createWindow(c, 300, 200)
	s.setFocused(w)
	drainSink(k)

	s.handleKeyEvent(wire.KeyEvent{
		Keycode:   wire.KeyArrowLeft,
		Modifiers: wire.ModLeftSuper | wire.ModLeftShift,
		Action:    wire.KeyActionDown,
	})

	offer := k.waitFor(t, wire.TypeResizeOffer)
	r, _ := wire.ParseResize(offer.Body)
	if r.Width != 512 || r.Height != 384 {
		t.Errorf("offer %dx%d, want quadrant 512x384", r.Width, r.Height)
	}
}

func TestScreenshotWritesFile(t *testing.T) {
	s := newTestServer(t, 64, 64)
	s.cfg.ScreenshotPath = filepath.Join(t.TempDir(), "shot.png")

	s.screenshotFrame.Store(screenshotFull)
	s.takeScreenshot()

	if _, err := os.Stat(s.cfg.ScreenshotPath); err != nil {
		t.Errorf("screenshot not written: %v", err)
	}
}

func TestKeyEventReachesFocusedClient(t *testing.T) {
	s := newTestServer(t, 640, 480)
	c, k := attachClient(t, s)
	w := s.createWindow(c, 100, 100)
	s.setFocused(w)
	drainSink(k)

	s.handleKeyEvent(wire.KeyEvent{Keycode: 'a', Action: wire.KeyActionDown, Key: 'a'})
	msg := k.waitFor(t, wire.TypeKeyEvent)
	ke, _ := wire.ParseKeyEvent(msg.Body)
	if ke.Wid != w.wid || ke.Keycode != 'a' {
		t.Errorf("forwarded event %+v", ke)
	}
}
