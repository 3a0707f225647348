package server

import (
	"os"
	"testing"
	"time"

	"aster/internal/client"
	"aster/internal/config"
	"aster/internal/display"
	"aster/internal/shm"
	"aster/internal/socketdir"
	"aster/internal/wire"
)

// startServer runs a full compositor over a memory display on a temp
// socket, the way a nested development instance would run.
func startServer(t *testing.T, width, height int) *Server {
	t.Helper()
	t.Setenv("ASTER_SHM_DIR", t.TempDir())
	shm.ResetDirCache()
	t.Cleanup(shm.ResetDirCache)
	t.Setenv("ASTER_SOCKET_DIR", t.TempDir())
	socketdir.ResetDirCache()
	t.Cleanup(socketdir.ResetDirCache)
	t.Setenv(socketdir.DisplayEnv, "")

	cfg := config.Default()
	cfg.FrameIntervalMs = 5
	cfg.Animations.FadeInMs = 1
	cfg.Animations.FadeOutMs = 1

	s := New(cfg, display.NewMemory(width, height), socketdir.DefaultEndpoint)
	s.drawCursor = false
	if err := s.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	go s.Run()
	t.Cleanup(s.Shutdown)
	return s
}

// waitUntil polls until the condition holds or the deadline passes.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHelloWelcome(t *testing.T) {
	startServer(t, 1024, 768)

	conn, err := client.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if conn.DisplayWidth != 1024 || conn.DisplayHeight != 768 {
		t.Errorf("welcome advertised %dx%d, want 1024x768", conn.DisplayWidth, conn.DisplayHeight)
	}
}

func TestCreateFlipCloseLifecycle(t *testing.T) {
	s := startServer(t, 1024, 768)

	lister, err := client.Connect()
	if err != nil {
		t.Fatal(err)
	}
	defer lister.Close()
	if err := lister.Subscribe(); err != nil {
		t.Fatal(err)
	}

	app, err := client.Connect()
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	win, err := app.NewWindow(200, 150)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	if win.Width != 200 || win.Height != 150 {
		t.Errorf("init size %dx%d, want 200x150", win.Width, win.Height)
	}
	if err := app.Advertise(win, "testapp"); err != nil {
		t.Fatal(err)
	}

	// Solid red into the buffer, then flip.
	for i := 0; i+3 < len(win.Buf.Data); i += 4 {
		win.Buf.Data[i] = 0x00   // B
		win.Buf.Data[i+1] = 0x00 // G
		win.Buf.Data[i+2] = 0xFF // R
		win.Buf.Data[i+3] = 0xFF // A
	}
	if err := app.Flip(win); err != nil {
		t.Fatal(err)
	}

	waitUntil(t, "red pixels on screen", func() bool {
		s.renderMu.Lock()
		defer s.renderMu.Unlock()
		front := s.backend.Front()
		off := front.PixOffset(10, 10)
		return front.Pix[off+2] == 0xFF && front.Pix[off+3] == 0xFF
	})

	// The advertised window shows up in queries.
	ads, err := app.QueryWindows()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ad := range ads {
		if ad.Wid == win.Wid && ad.Name() == "testapp" {
			found = true
		}
	}
	if !found {
		t.Fatalf("advertised window missing from query: %+v", ads)
	}

	// Close: the window fades out, disappears from queries, and the
	// subscriber hears about it.
	if err := app.CloseWindow(win); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "window removed from registry", func() bool {
		return s.lookup(win.Wid) == nil
	})
	ads, err = app.QueryWindows()
	if err != nil {
		t.Fatal(err)
	}
	for _, ad := range ads {
		if ad.Wid == win.Wid {
			t.Error("closed window still advertised")
		}
	}
	if _, err := lister.WaitFor(wire.TypeNotify); err != nil {
		t.Errorf("subscriber never notified: %v", err)
	}
}

func TestFocusChangeSequence(t *testing.T) {
	startServer(t, 640, 480)

	app, err := client.Connect()
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	a, err := app.NewWindow(100, 100)
	if err != nil {
		t.Fatal(err)
	}
	b, err := app.NewWindow(100, 100)
	if err != nil {
		t.Fatal(err)
	}

	if err := app.Send(wire.TypeWindowFocus, wire.WindowFocus{Wid: a.Wid}.Marshal()); err != nil {
		t.Fatal(err)
	}
	msg, err := app.WaitFor(wire.TypeWindowFocusChange)
	if err != nil {
		t.Fatal(err)
	}
	fc, _ := wire.ParseWindowFocusChange(msg.Body)
	if fc.Wid != a.Wid || fc.Focused != 1 {
		t.Errorf("first change %+v, want focus gained on A", fc)
	}

	if err := app.Send(wire.TypeWindowFocus, wire.WindowFocus{Wid: b.Wid}.Marshal()); err != nil {
		t.Fatal(err)
	}
	msg, err = app.WaitFor(wire.TypeWindowFocusChange)
	if err != nil {
		t.Fatal(err)
	}
	fc, _ = wire.ParseWindowFocusChange(msg.Body)
	if fc.Wid != a.Wid || fc.Focused != 0 {
		t.Errorf("second change %+v, want focus lost on A", fc)
	}
	msg, err = app.WaitFor(wire.TypeWindowFocusChange)
	if err != nil {
		t.Fatal(err)
	}
	fc, _ = wire.ParseWindowFocusChange(msg.Body)
	if fc.Wid != b.Wid || fc.Focused != 1 {
		t.Errorf("third change %+v, want focus gained on B", fc)
	}
}

func TestResizeHandshake(t *testing.T) {
	s := startServer(t, 640, 480)

	app, err := client.Connect()
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	win, err := app.NewWindow(100, 100)
	if err != nil {
		t.Fatal(err)
	}
	oldKey := shm.KeyFor(app.Ident(), win.Bufid)

	if err := app.ResizeRequest(win, 300, 220); err != nil {
		t.Fatal(err)
	}
	msg, err := app.WaitFor(wire.TypeResizeOffer)
	if err != nil {
		t.Fatal(err)
	}
	offer, _ := wire.ParseResize(msg.Body)
	if offer.Width != 300 || offer.Height != 220 {
		t.Fatalf("offer %dx%d, want the solicited 300x220", offer.Width, offer.Height)
	}

	// Accept a different size than offered; the server honours it.
	if err := app.ResizeAccept(win, 320, 240); err != nil {
		t.Fatal(err)
	}
	msg, err = app.WaitFor(wire.TypeResizeBufid)
	if err != nil {
		t.Fatal(err)
	}
	bufid, _ := wire.ParseResize(msg.Body)
	if bufid.Bufid == 0 || bufid.Bufid == win.Bufid {
		t.Fatalf("bufid reply %+v must carry a fresh buffer", bufid)
	}

	if err := app.ResizeDone(win, bufid.Bufid, 320, 240); err != nil {
		t.Fatal(err)
	}

	waitUntil(t, "window resized", func() bool {
		w := s.lookup(win.Wid)
		if w == nil {
			return false
		}
		s.renderMu.Lock()
		defer s.renderMu.Unlock()
		return w.width == 320 && w.height == 240 && w.bufid == bufid.Bufid
	})

	// The old buffer's key is gone once the swap commits.
	if _, err := shm.Open(oldKey); err == nil {
		t.Error("old buffer still openable after resize commit")
	}
}

func TestStaleSocketIsReplaced(t *testing.T) {
	s := startServer(t, 320, 240)
	s.Shutdown()

	// Leave a dead file at the socket path, as an unclean exit would.
	if err := os.WriteFile(socketdir.Path(socketdir.DefaultEndpoint), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	// A fresh instance can bind again after an unclean exit left state
	// behind.
	cfg := config.Default()
	s2 := New(cfg, display.NewMemory(320, 240), socketdir.DefaultEndpoint)
	if err := s2.Bind(); err != nil {
		t.Fatalf("rebind after shutdown: %v", err)
	}
	s2.Shutdown()
}
