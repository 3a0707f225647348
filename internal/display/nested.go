package display

import (
	"fmt"
	"image"

	"aster/internal/client"
	"aster/internal/gfx"
	"aster/internal/wire"
)

// Nested renders into a window of a host compositor. The window's shared
// buffer is the front surface; Flush forwards damage as flip-region
// messages. Host input events are republished on Events for the server to
// re-inject as its own device events.
type Nested struct {
	conn   *client.Conn
	window *client.Window
	front  *image.RGBA

	// Events carries host key and pointer messages. Closed when the host
	// connection drops.
	Events chan *wire.Message
}

// OpenNested creates a window of the requested size on the host compositor
// named in the environment.
func OpenNested(width, height int) (*Nested, error) {
	conn, err := client.Connect()
	if err != nil {
		return nil, fmt.Errorf("nested: %w", err)
	}
	win, err := conn.NewWindow(uint32(width), uint32(height))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nested window: %w", err)
	}
	if err := conn.Move(win, 50, 50); err != nil {
		conn.Close()
		return nil, err
	}
	front := gfx.Surface(win.Buf.Data, width, height)
	if front == nil {
		conn.Close()
		return nil, fmt.Errorf("nested window buffer too small")
	}

	n := &Nested{conn: conn, window: win, front: front, Events: make(chan *wire.Message, 64)}
	go n.readHost()
	return n, nil
}

// readHost forwards input-relevant host messages to the Events channel.
func (n *Nested) readHost() {
	defer close(n.Events)
	for {
		msg, err := n.conn.Poll()
		if err != nil {
			return
		}
		switch msg.Type {
		case wire.TypeKeyEvent, wire.TypeWindowMouseEvent, wire.TypeSessionEnd:
			n.Events <- msg
		}
	}
}

func (n *Nested) Size() (int, int) { return n.front.Rect.Dx(), n.front.Rect.Dy() }

func (n *Nested) Front() *image.RGBA { return n.front }

// Flush tells the host which regions of the window changed.
func (n *Nested) Flush(rects []image.Rectangle) error {
	for _, r := range rects {
		r = r.Intersect(n.front.Bounds())
		if r.Empty() {
			continue
		}
		err := n.conn.FlipRegion(n.window, int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *Nested) Close() error {
	n.conn.CloseWindow(n.window)
	return n.conn.Close()
}
