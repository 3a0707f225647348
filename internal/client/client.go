// Package client is a small endpoint for talking to a running compositor.
// It covers what the server's own tooling needs: the nested backend, the
// window lister, and tests. Full application conveniences live outside this
// repository.
package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"aster/internal/shm"
	"aster/internal/socketdir"
	"aster/internal/wire"
)

// Conn is a connection to a compositor endpoint.
type Conn struct {
	ident string
	c     net.Conn
	br    *bufio.Reader

	wmu sync.Mutex

	// queued holds messages read past while waiting for a specific type.
	queued []*wire.Message

	DisplayWidth  uint32
	DisplayHeight uint32
}

// Window is a client-side window handle with its mapped buffer.
type Window struct {
	Wid    uint32
	Width  uint32
	Height uint32
	Bufid  uint32
	Buf    *shm.Buffer
}

// Connect dials the endpoint published in the environment and performs the
// hello/welcome exchange.
func Connect() (*Conn, error) {
	return ConnectTo(socketdir.CurrentEndpoint())
}

// ConnectTo dials a named endpoint and performs the hello/welcome exchange.
func ConnectTo(ident string) (*Conn, error) {
	sock, err := net.Dial("unix", socketdir.Path(ident))
	if err != nil {
		return nil, fmt.Errorf("dial compositor %q: %w", ident, err)
	}
	c := &Conn{ident: ident, c: sock, br: bufio.NewReader(sock)}
	if err := c.Send(wire.TypeHello, nil); err != nil {
		sock.Close()
		return nil, err
	}
	msg, err := c.WaitFor(wire.TypeWelcome)
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("await welcome: %w", err)
	}
	welcome, err := wire.ParseWelcome(msg.Body)
	if err != nil {
		sock.Close()
		return nil, err
	}
	c.DisplayWidth = welcome.DisplayWidth
	c.DisplayHeight = welcome.DisplayHeight
	return c, nil
}

// Ident returns the endpoint name this connection is attached to.
func (c *Conn) Ident() string { return c.ident }

// Send frames and writes one message.
func (c *Conn) Send(typ uint32, body []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wire.WriteMessage(c.c, typ, body)
}

// Poll returns the next message, preferring any queued by WaitFor.
func (c *Conn) Poll() (*wire.Message, error) {
	if len(c.queued) > 0 {
		msg := c.queued[0]
		c.queued = c.queued[1:]
		return msg, nil
	}
	return wire.ReadMessage(c.br)
}

// WaitFor reads until a message of the wanted type arrives, queueing
// everything else for later Polls.
func (c *Conn) WaitFor(typ uint32) (*wire.Message, error) {
	for i, msg := range c.queued {
		if msg.Type == typ {
			c.queued = append(c.queued[:i], c.queued[i+1:]...)
			return msg, nil
		}
	}
	for {
		msg, err := wire.ReadMessage(c.br)
		if err != nil {
			return nil, err
		}
		if msg.Type == typ {
			return msg, nil
		}
		c.queued = append(c.queued, msg)
	}
}

// NewWindow asks the server for a window and maps its buffer.
func (c *Conn) NewWindow(width, height uint32) (*Window, error) {
	if err := c.Send(wire.TypeWindowNew, wire.WindowNew{Width: width, Height: height}.Marshal()); err != nil {
		return nil, err
	}
	msg, err := c.WaitFor(wire.TypeWindowInit)
	if err != nil {
		return nil, err
	}
	init, err := wire.ParseWindowInit(msg.Body)
	if err != nil {
		return nil, err
	}
	win := &Window{Wid: init.Wid, Width: init.Width, Height: init.Height, Bufid: init.Bufid}
	buf, err := shm.Open(shm.KeyFor(c.ident, init.Bufid))
	if err != nil {
		return nil, fmt.Errorf("map window buffer: %w", err)
	}
	win.Buf = buf
	return win, nil
}

// Flip damages the window's whole extent.
func (c *Conn) Flip(w *Window) error {
	return c.Send(wire.TypeFlip, wire.Flip{Wid: w.Wid}.Marshal())
}

// FlipRegion damages part of the window.
func (c *Conn) FlipRegion(w *Window, x, y, width, height int32) error {
	return c.Send(wire.TypeFlipRegion, wire.FlipRegion{
		Wid: w.Wid, X: x, Y: y, Width: width, Height: height,
	}.Marshal())
}

// Move places the window on screen.
func (c *Conn) Move(w *Window, x, y int32) error {
	return c.Send(wire.TypeWindowMove, wire.WindowMove{Wid: w.Wid, X: x, Y: y}.Marshal())
}

// SetStack moves the window into a z-order slot.
func (c *Conn) SetStack(w *Window, z int32) error {
	return c.Send(wire.TypeWindowStack, wire.WindowStack{Wid: w.Wid, Z: z}.Marshal())
}

// CloseWindow asks the server to close the window and unmaps the buffer.
func (c *Conn) CloseWindow(w *Window) error {
	err := c.Send(wire.TypeWindowClose, wire.WindowClose{Wid: w.Wid}.Marshal())
	if w.Buf != nil {
		w.Buf.Close()
		w.Buf = nil
	}
	return err
}

// Advertise publishes a window name for listers.
func (c *Conn) Advertise(w *Window, name string) error {
	strings := append([]byte(name), 0)
	return c.Send(wire.TypeWindowAdvertise, wire.WindowAdvertise{
		Wid:     w.Wid,
		Strings: strings,
	}.Marshal())
}

// Subscribe registers for NOTIFY messages on window list changes.
func (c *Conn) Subscribe() error { return c.Send(wire.TypeSubscribe, nil) }

// Unsubscribe removes the subscription.
func (c *Conn) Unsubscribe() error { return c.Send(wire.TypeUnsubscribe, nil) }

// QueryWindows asks for the advertised window list. The reply is a sequence
// of advertisements terminated by a zero-length sentinel.
func (c *Conn) QueryWindows() ([]wire.WindowAdvertise, error) {
	if err := c.Send(wire.TypeQueryWindows, nil); err != nil {
		return nil, err
	}
	var ads []wire.WindowAdvertise
	for {
		msg, err := c.WaitFor(wire.TypeWindowAdvertise)
		if err != nil {
			return nil, err
		}
		ad, err := wire.ParseWindowAdvertise(msg.Body)
		if err != nil {
			return nil, err
		}
		if len(ad.Strings) == 0 {
			return ads, nil
		}
		ads = append(ads, ad)
	}
}

// ResizeRequest solicits a resize offer from the server.
func (c *Conn) ResizeRequest(w *Window, width, height uint32) error {
	return c.Send(wire.TypeResizeRequest, wire.Resize{Wid: w.Wid, Width: width, Height: height}.Marshal())
}

// ResizeAccept accepts an offer; the server answers with RESIZE_BUFID.
func (c *Conn) ResizeAccept(w *Window, width, height uint32) error {
	return c.Send(wire.TypeResizeAccept, wire.Resize{Wid: w.Wid, Width: width, Height: height}.Marshal())
}

// ResizeDone completes the handshake: the new buffer is mapped into the
// window handle, the old mapping is dropped, and the server swaps buffers.
func (c *Conn) ResizeDone(w *Window, bufid, width, height uint32) error {
	buf, err := shm.Open(shm.KeyFor(c.ident, bufid))
	if err != nil {
		return fmt.Errorf("map resize buffer: %w", err)
	}
	if w.Buf != nil {
		w.Buf.Close()
	}
	w.Buf = buf
	w.Bufid = bufid
	w.Width = width
	w.Height = height
	return c.Send(wire.TypeResizeDone, wire.Resize{Wid: w.Wid, Width: width, Height: height, Bufid: bufid}.Marshal())
}

// KeyBind registers a key combination with the server.
func (c *Conn) KeyBind(key, modifiers uint32, response int32) error {
	return c.Send(wire.TypeKeyBind, wire.KeyBind{Key: key, Modifiers: modifiers, Response: response}.Marshal())
}

// SessionEnd asks the server to broadcast a session end to every client.
func (c *Conn) SessionEnd() error { return c.Send(wire.TypeSessionEnd, nil) }

// Close sends a goodbye and closes the socket.
func (c *Conn) Close() error {
	c.Send(wire.TypeGoodbye, nil)
	return c.c.Close()
}
