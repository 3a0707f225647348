package server

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"aster/internal/client"
	"aster/internal/display"
	"aster/internal/wire"
)

// Input devices are modelled as privileged clients: each reader thread
// dials the server's own endpoint and feeds synthesized events through the
// normal message transport.

// Device packet sentinels, per the driver contract.
const (
	mousePacketMagic = 0x4D4F5553 // "MOUS"
	keyPacketMagic   = 0x4B455953 // "KEYS"
)

// startInputThreads launches the device readers. Missing devices are
// logged and skipped, which is the normal case for headless runs.
func (s *Server) startInputThreads() {
	go s.mouseInput(s.cfg.Input.MouseDevice)
	go s.keyboardInput(s.cfg.Input.KeyboardDevice)
}

// dialSelf connects to this server's endpoint as a privileged client.
func (s *Server) dialSelf() (*client.Conn, error) {
	// The endpoint is already bound by the time input threads start, but
	// give the accept loop a moment on slow starts.
	var lastErr error
	for i := 0; i < 10; i++ {
		c, err := client.ConnectTo(s.ident)
		if err == nil {
			return c, nil
		}
		lastErr = err
		time.Sleep(50 * time.Millisecond)
	}
	return nil, lastErr
}

// mouseInput reads pointer packets from the device and forwards them as
// relative mouse events: magic, dx, dy (y-up), buttons — all little-endian.
func (s *Server) mouseInput(device string) {
	f, err := os.Open(device)
	if err != nil {
		log.Debug().Str("device", device).Err(err).Msg("mouse device unavailable")
		return
	}
	defer f.Close()

	conn, err := s.dialSelf()
	if err != nil {
		log.Error().Err(err).Msg("mouse thread could not reach own endpoint")
		return
	}
	defer conn.Close()

	var pkt [16]byte
	for {
		if _, err := io.ReadFull(f, pkt[:]); err != nil {
			return
		}
		if binary.LittleEndian.Uint32(pkt[0:4]) != mousePacketMagic {
			continue
		}
		me := wire.MouseEvent{
			DX:      int32(binary.LittleEndian.Uint32(pkt[4:8])),
			DY:      int32(binary.LittleEndian.Uint32(pkt[8:12])),
			Buttons: binary.LittleEndian.Uint32(pkt[12:16]),
			Kind:    wire.MouseRelative,
		}
		conn.Send(wire.TypeMouseEvent, me.Marshal())
	}
}

// keyboardInput reads key packets from the device and forwards them as key
// events: magic, keycode, modifiers, action, derived key.
func (s *Server) keyboardInput(device string) {
	f, err := os.Open(device)
	if err != nil {
		log.Debug().Str("device", device).Err(err).Msg("keyboard device unavailable")
		return
	}
	defer f.Close()

	conn, err := s.dialSelf()
	if err != nil {
		log.Error().Err(err).Msg("keyboard thread could not reach own endpoint")
		return
	}
	defer conn.Close()

	var pkt [16]byte
	for {
		if _, err := io.ReadFull(f, pkt[:]); err != nil {
			return
		}
		if binary.LittleEndian.Uint32(pkt[0:4]) != keyPacketMagic {
			continue
		}
		mods := binary.LittleEndian.Uint32(pkt[8:12])
		ke := wire.KeyEvent{
			Keycode:   binary.LittleEndian.Uint32(pkt[4:8]),
			Modifiers: mods,
			Action:    pkt[12],
			Key:       pkt[13],
			StateMods: mods,
		}
		conn.Send(wire.TypeKeyEvent, ke.Marshal())
	}
}

// BridgeNestedInput republishes the host compositor's input events as this
// server's own device events, the way raw drivers would.
func (s *Server) BridgeNestedInput(n *display.Nested) {
	go func() {
		conn, err := s.dialSelf()
		if err != nil {
			log.Error().Err(err).Msg("nested input bridge could not reach own endpoint")
			return
		}
		defer conn.Close()

		for msg := range n.Events {
			switch msg.Type {
			case wire.TypeKeyEvent:
				ke, err := wire.ParseKeyEvent(msg.Body)
				if err != nil {
					continue
				}
				ke.Wid = 0
				conn.Send(wire.TypeKeyEvent, ke.Marshal())
			case wire.TypeWindowMouseEvent:
				me, err := wire.ParseWindowMouseEvent(msg.Body)
				if err != nil {
					continue
				}
				conn.Send(wire.TypeMouseEvent, wire.MouseEvent{
					DX:      me.NewX,
					DY:      me.NewY,
					Buttons: uint32(me.Buttons),
					Kind:    wire.MouseAbsolute,
				}.Marshal())
			case wire.TypeSessionEnd:
				log.Info().Msg("host session ended")
				s.Shutdown()
				return
			}
		}
	}()
}
