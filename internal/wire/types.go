package wire

import (
	"encoding/binary"
	"fmt"
)

// Typed message bodies. Each body knows how to marshal itself; Parse
// functions validate the length before decoding. Multi-byte fields are
// little-endian on the wire.

type buf struct {
	b []byte
}

func newBuf(n int) *buf { return &buf{b: make([]byte, 0, n)} }

func (p *buf) u32(v uint32) *buf {
	p.b = binary.LittleEndian.AppendUint32(p.b, v)
	return p
}

func (p *buf) i32(v int32) *buf { return p.u32(uint32(v)) }

func (p *buf) u16(v uint16) *buf {
	p.b = binary.LittleEndian.AppendUint16(p.b, v)
	return p
}

func (p *buf) u8(v uint8) *buf {
	p.b = append(p.b, v)
	return p
}

func (p *buf) bytes(v []byte) *buf {
	p.b = append(p.b, v...)
	return p
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u8() uint8 {
	v := r.b[r.off]
	r.off++
	return v
}

func checkLen(name string, body []byte, want int) error {
	if len(body) < want {
		return fmt.Errorf("wire: truncated %s body: %d < %d", name, len(body), want)
	}
	return nil
}

// Welcome carries the display dimensions in reply to HELLO.
type Welcome struct {
	DisplayWidth  uint32
	DisplayHeight uint32
}

func (m Welcome) Marshal() []byte { return newBuf(8).u32(m.DisplayWidth).u32(m.DisplayHeight).b }

func ParseWelcome(body []byte) (Welcome, error) {
	if err := checkLen("welcome", body, 8); err != nil {
		return Welcome{}, err
	}
	r := &reader{b: body}
	return Welcome{DisplayWidth: r.u32(), DisplayHeight: r.u32()}, nil
}

// WindowNew requests a window of the given dimensions.
type WindowNew struct {
	Width  uint32
	Height uint32
}

func (m WindowNew) Marshal() []byte { return newBuf(8).u32(m.Width).u32(m.Height).b }

func ParseWindowNew(body []byte) (WindowNew, error) {
	if err := checkLen("window_new", body, 8); err != nil {
		return WindowNew{}, err
	}
	r := &reader{b: body}
	return WindowNew{Width: r.u32(), Height: r.u32()}, nil
}

// WindowInit answers WINDOW_NEW with the assigned wid and buffer.
type WindowInit struct {
	Wid    uint32
	Width  uint32
	Height uint32
	Bufid  uint32
}

func (m WindowInit) Marshal() []byte {
	return newBuf(16).u32(m.Wid).u32(m.Width).u32(m.Height).u32(m.Bufid).b
}

func ParseWindowInit(body []byte) (WindowInit, error) {
	if err := checkLen("window_init", body, 16); err != nil {
		return WindowInit{}, err
	}
	r := &reader{b: body}
	return WindowInit{Wid: r.u32(), Width: r.u32(), Height: r.u32(), Bufid: r.u32()}, nil
}

// Flip damages a window's whole extent.
type Flip struct {
	Wid uint32
}

func (m Flip) Marshal() []byte { return newBuf(4).u32(m.Wid).b }

func ParseFlip(body []byte) (Flip, error) {
	if err := checkLen("flip", body, 4); err != nil {
		return Flip{}, err
	}
	r := &reader{b: body}
	return Flip{Wid: r.u32()}, nil
}

// FlipRegion damages a window-relative rectangle.
type FlipRegion struct {
	Wid    uint32
	X, Y   int32
	Width  int32
	Height int32
}

func (m FlipRegion) Marshal() []byte {
	return newBuf(20).u32(m.Wid).i32(m.X).i32(m.Y).i32(m.Width).i32(m.Height).b
}

func ParseFlipRegion(body []byte) (FlipRegion, error) {
	if err := checkLen("flip_region", body, 20); err != nil {
		return FlipRegion{}, err
	}
	r := &reader{b: body}
	return FlipRegion{Wid: r.u32(), X: r.i32(), Y: r.i32(), Width: r.i32(), Height: r.i32()}, nil
}

// KeyEvent is a keyboard event, both from input devices and to clients.
// StateMods is the dispatcher's shadow of the full modifier state.
type KeyEvent struct {
	Wid       uint32
	Keycode   uint32
	Modifiers uint32
	Action    uint8
	Key       uint8
	StateMods uint32
}

func (m KeyEvent) Marshal() []byte {
	return newBuf(20).u32(m.Wid).u32(m.Keycode).u32(m.Modifiers).
		u8(m.Action).u8(m.Key).u16(0).u32(m.StateMods).b
}

func ParseKeyEvent(body []byte) (KeyEvent, error) {
	if err := checkLen("key_event", body, 20); err != nil {
		return KeyEvent{}, err
	}
	r := &reader{b: body}
	m := KeyEvent{Wid: r.u32(), Keycode: r.u32(), Modifiers: r.u32()}
	m.Action = r.u8()
	m.Key = r.u8()
	r.u16()
	m.StateMods = r.u32()
	return m, nil
}

// MouseEvent is a raw pointer device packet fed to the server by an input
// thread. Wid is ignored on the inbound path. Relative packets use the PS/2
// convention: positive DY means the device moved up.
type MouseEvent struct {
	Wid     uint32
	DX, DY  int32
	Buttons uint32
	Kind    int32
}

func (m MouseEvent) Marshal() []byte {
	return newBuf(20).u32(m.Wid).i32(m.DX).i32(m.DY).u32(m.Buttons).i32(m.Kind).b
}

func ParseMouseEvent(body []byte) (MouseEvent, error) {
	if err := checkLen("mouse_event", body, 20); err != nil {
		return MouseEvent{}, err
	}
	r := &reader{b: body}
	return MouseEvent{Wid: r.u32(), DX: r.i32(), DY: r.i32(), Buttons: r.u32(), Kind: r.i32()}, nil
}

// WindowMouseEvent is a routed pointer event delivered to a client, with
// window-local coordinates.
type WindowMouseEvent struct {
	Wid        uint32
	NewX, NewY int32
	OldX, OldY int32
	Buttons    uint8
	Command    uint8
}

func (m WindowMouseEvent) Marshal() []byte {
	return newBuf(24).u32(m.Wid).i32(m.NewX).i32(m.NewY).i32(m.OldX).i32(m.OldY).
		u8(m.Buttons).u8(m.Command).u16(0).b
}

func ParseWindowMouseEvent(body []byte) (WindowMouseEvent, error) {
	if err := checkLen("window_mouse_event", body, 24); err != nil {
		return WindowMouseEvent{}, err
	}
	r := &reader{b: body}
	m := WindowMouseEvent{Wid: r.u32(), NewX: r.i32(), NewY: r.i32(), OldX: r.i32(), OldY: r.i32()}
	m.Buttons = r.u8()
	m.Command = r.u8()
	return m, nil
}

// WindowMove places a window's upper-left corner in screen space.
type WindowMove struct {
	Wid  uint32
	X, Y int32
}

func (m WindowMove) Marshal() []byte { return newBuf(12).u32(m.Wid).i32(m.X).i32(m.Y).b }

func ParseWindowMove(body []byte) (WindowMove, error) {
	if err := checkLen("window_move", body, 12); err != nil {
		return WindowMove{}, err
	}
	r := &reader{b: body}
	return WindowMove{Wid: r.u32(), X: r.i32(), Y: r.i32()}, nil
}

// WindowClose requests closure of a window.
type WindowClose struct {
	Wid uint32
}

func (m WindowClose) Marshal() []byte { return newBuf(4).u32(m.Wid).b }

func ParseWindowClose(body []byte) (WindowClose, error) {
	if err := checkLen("window_close", body, 4); err != nil {
		return WindowClose{}, err
	}
	r := &reader{b: body}
	return WindowClose{Wid: r.u32()}, nil
}

// WindowStack moves a window to a z-order slot.
type WindowStack struct {
	Wid uint32
	Z   int32
}

func (m WindowStack) Marshal() []byte { return newBuf(8).u32(m.Wid).i32(m.Z).b }

func ParseWindowStack(body []byte) (WindowStack, error) {
	if err := checkLen("window_stack", body, 8); err != nil {
		return WindowStack{}, err
	}
	r := &reader{b: body}
	return WindowStack{Wid: r.u32(), Z: r.i32()}, nil
}

// WindowFocusChange informs a client that one of its windows gained or lost
// focus.
type WindowFocusChange struct {
	Wid     uint32
	Focused int32
}

func (m WindowFocusChange) Marshal() []byte { return newBuf(8).u32(m.Wid).i32(m.Focused).b }

func ParseWindowFocusChange(body []byte) (WindowFocusChange, error) {
	if err := checkLen("window_focus_change", body, 8); err != nil {
		return WindowFocusChange{}, err
	}
	r := &reader{b: body}
	return WindowFocusChange{Wid: r.u32(), Focused: r.i32()}, nil
}

// WindowFocus asks the server to focus a window.
type WindowFocus struct {
	Wid uint32
}

func (m WindowFocus) Marshal() []byte { return newBuf(4).u32(m.Wid).b }

func ParseWindowFocus(body []byte) (WindowFocus, error) {
	if err := checkLen("window_focus", body, 4); err != nil {
		return WindowFocus{}, err
	}
	r := &reader{b: body}
	return WindowFocus{Wid: r.u32()}, nil
}

// WindowDragStart asks the server to begin an interactive move of a window,
// as if the user had alt-dragged it.
type WindowDragStart struct {
	Wid uint32
}

func (m WindowDragStart) Marshal() []byte { return newBuf(4).u32(m.Wid).b }

func ParseWindowDragStart(body []byte) (WindowDragStart, error) {
	if err := checkLen("window_drag_start", body, 4); err != nil {
		return WindowDragStart{}, err
	}
	r := &reader{b: body}
	return WindowDragStart{Wid: r.u32()}, nil
}

// WindowResizeStart asks the server to begin an interactive resize.
type WindowResizeStart struct {
	Wid       uint32
	Direction int32
}

func (m WindowResizeStart) Marshal() []byte { return newBuf(8).u32(m.Wid).i32(m.Direction).b }

func ParseWindowResizeStart(body []byte) (WindowResizeStart, error) {
	if err := checkLen("window_resize_start", body, 8); err != nil {
		return WindowResizeStart{}, err
	}
	r := &reader{b: body}
	return WindowResizeStart{Wid: r.u32(), Direction: r.i32()}, nil
}

// WindowUpdateShape sets a window's hit-test alpha threshold.
type WindowUpdateShape struct {
	Wid       uint32
	Threshold int32
}

func (m WindowUpdateShape) Marshal() []byte { return newBuf(8).u32(m.Wid).i32(m.Threshold).b }

func ParseWindowUpdateShape(body []byte) (WindowUpdateShape, error) {
	if err := checkLen("window_update_shape", body, 8); err != nil {
		return WindowUpdateShape{}, err
	}
	r := &reader{b: body}
	return WindowUpdateShape{Wid: r.u32(), Threshold: r.i32()}, nil
}

// WindowWarpMouse moves the pointer to a window-local coordinate.
type WindowWarpMouse struct {
	Wid  uint32
	X, Y int32
}

func (m WindowWarpMouse) Marshal() []byte { return newBuf(12).u32(m.Wid).i32(m.X).i32(m.Y).b }

func ParseWindowWarpMouse(body []byte) (WindowWarpMouse, error) {
	if err := checkLen("window_warp_mouse", body, 12); err != nil {
		return WindowWarpMouse{}, err
	}
	r := &reader{b: body}
	return WindowWarpMouse{Wid: r.u32(), X: r.i32(), Y: r.i32()}, nil
}

// WindowShowMouse sets a window's cursor preference.
type WindowShowMouse struct {
	Wid  uint32
	Mode int32
}

func (m WindowShowMouse) Marshal() []byte { return newBuf(8).u32(m.Wid).i32(m.Mode).b }

func ParseWindowShowMouse(body []byte) (WindowShowMouse, error) {
	if err := checkLen("window_show_mouse", body, 8); err != nil {
		return WindowShowMouse{}, err
	}
	r := &reader{b: body}
	return WindowShowMouse{Wid: r.u32(), Mode: r.i32()}, nil
}

// Resize is the shared body of the resize handshake messages
// (REQUEST, OFFER, ACCEPT, BUFID, DONE). Bufid is zero except for
// BUFID and DONE.
type Resize struct {
	Wid    uint32
	Width  uint32
	Height uint32
	Bufid  uint32
}

func (m Resize) Marshal() []byte {
	return newBuf(16).u32(m.Wid).u32(m.Width).u32(m.Height).u32(m.Bufid).b
}

func ParseResize(body []byte) (Resize, error) {
	if err := checkLen("resize", body, 16); err != nil {
		return Resize{}, err
	}
	r := &reader{b: body}
	return Resize{Wid: r.u32(), Width: r.u32(), Height: r.u32(), Bufid: r.u32()}, nil
}

// WindowAdvertise is the client-supplied name/icon bundle for listers.
// Offsets index into Strings; slot 0 is the name, slot 1 the icon, the rest
// reserved. A zero-length advertisement with wid 0 terminates a query reply.
type WindowAdvertise struct {
	Wid     uint32
	Flags   uint32
	Offsets [5]uint16
	Strings []byte
}

func (m WindowAdvertise) Marshal() []byte {
	p := newBuf(22 + len(m.Strings)).u32(m.Wid).u32(m.Flags)
	for _, off := range m.Offsets {
		p.u16(off)
	}
	p.u32(uint32(len(m.Strings)))
	return p.bytes(m.Strings).b
}

func ParseWindowAdvertise(body []byte) (WindowAdvertise, error) {
	if err := checkLen("window_advertise", body, 22); err != nil {
		return WindowAdvertise{}, err
	}
	r := &reader{b: body}
	m := WindowAdvertise{Wid: r.u32(), Flags: r.u32()}
	for i := range m.Offsets {
		m.Offsets[i] = r.u16()
	}
	length := int(r.u32())
	if err := checkLen("window_advertise strings", body, 22+length); err != nil {
		return WindowAdvertise{}, err
	}
	m.Strings = append([]byte(nil), body[22:22+length]...)
	return m, nil
}

// Name returns the advertised window name, if any.
func (m WindowAdvertise) Name() string { return m.stringAt(0) }

// Icon returns the advertised icon identifier, if any.
func (m WindowAdvertise) Icon() string { return m.stringAt(1) }

func (m WindowAdvertise) stringAt(slot int) string {
	off := int(m.Offsets[slot])
	if off >= len(m.Strings) {
		return ""
	}
	end := off
	for end < len(m.Strings) && m.Strings[end] != 0 {
		end++
	}
	return string(m.Strings[off:end])
}

// KeyBind registers a (key, modifiers) combination for the sending client.
type KeyBind struct {
	Key       uint32
	Modifiers uint32
	Response  int32
}

func (m KeyBind) Marshal() []byte { return newBuf(12).u32(m.Key).u32(m.Modifiers).i32(m.Response).b }

func ParseKeyBind(body []byte) (KeyBind, error) {
	if err := checkLen("key_bind", body, 12); err != nil {
		return KeyBind{}, err
	}
	r := &reader{b: body}
	return KeyBind{Key: r.u32(), Modifiers: r.u32(), Response: r.i32()}, nil
}
