package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := WindowMove{Wid: 7, X: -20, Y: 35}.Marshal()
	if err := WriteMessage(&buf, TypeWindowMove, body); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.Type != TypeWindowMove {
		t.Errorf("type = %#x, want %#x", msg.Type, TypeWindowMove)
	}
	wm, err := ParseWindowMove(msg.Body)
	if err != nil {
		t.Fatalf("ParseWindowMove: %v", err)
	}
	if wm.Wid != 7 || wm.X != -20 || wm.Y != 35 {
		t.Errorf("got %+v", wm)
	}
}

func TestReadMessageBadMagicKeepsStreamSynchronized(t *testing.T) {
	var buf bytes.Buffer

	// A frame with a corrupt sentinel, followed by a valid one.
	bad := make([]byte, HeaderSize+4)
	binary.LittleEndian.PutUint32(bad[0:4], 0xDEADBEEF)
	binary.LittleEndian.PutUint32(bad[4:8], TypeFlip)
	binary.LittleEndian.PutUint32(bad[8:12], uint32(len(bad)))
	buf.Write(bad)
	if err := WriteMessage(&buf, TypeHello, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadMessage(&buf); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("first read err = %v, want ErrBadMagic", err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if msg.Type != TypeHello {
		t.Errorf("second message type = %#x, want hello", msg.Type)
	}
}

func TestReadMessageImplausibleSize(t *testing.T) {
	var buf bytes.Buffer
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], TypeHello)
	binary.LittleEndian.PutUint32(hdr[8:12], 1<<30)
	buf.Write(hdr)

	if _, err := ReadMessage(&buf); err == nil {
		t.Error("expected error for oversized frame")
	}
}

func TestParseTruncatedBody(t *testing.T) {
	if _, err := ParseResize([]byte{1, 2, 3}); err == nil {
		t.Error("expected truncation error")
	}
	if _, err := ParseKeyEvent(make([]byte, 19)); err == nil {
		t.Error("expected truncation error")
	}
}

func TestKeyEventRoundTrip(t *testing.T) {
	in := KeyEvent{
		Wid:       3,
		Keycode:   '\t',
		Modifiers: ModLeftAlt,
		Action:    KeyActionDown,
		Key:       '\t',
		StateMods: ModLeftAlt | ModLeftShift,
	}
	out, err := ParseKeyEvent(in.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestAdvertiseStrings(t *testing.T) {
	ad := WindowAdvertise{
		Wid:     9,
		Offsets: [5]uint16{0, 5, 0, 0, 0},
		Strings: []byte("term\x00icon.png\x00"),
	}
	parsed, err := ParseWindowAdvertise(ad.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got := parsed.Name(); got != "term" {
		t.Errorf("Name() = %q, want term", got)
	}
	if got := parsed.Icon(); got != "icon.png" {
		t.Errorf("Icon() = %q, want icon.png", got)
	}
}

func TestAdvertiseSentinel(t *testing.T) {
	parsed, err := ParseWindowAdvertise(WindowAdvertise{}.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Strings) != 0 || parsed.Wid != 0 {
		t.Errorf("sentinel advertisement not empty: %+v", parsed)
	}
}
