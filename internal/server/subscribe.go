package server

import "aster/internal/wire"

// Subscriptions let listers (task strips, switchers) hear about window list
// changes. The set is keyed by connection; a connection's subscription dies
// with it.

// subscribe adds a connection to the notification set.
// Runs on the service thread.
func (s *Server) subscribe(c *Connection) {
	s.renderMu.Lock()
	s.subscribers[c] = struct{}{}
	s.renderMu.Unlock()
}

// unsubscribe removes a connection from the notification set.
func (s *Server) unsubscribe(c *Connection) {
	s.renderMu.Lock()
	delete(s.subscribers, c)
	s.renderMu.Unlock()
}

// notifySubscribers tells every subscriber the window list changed.
func (s *Server) notifySubscribers() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.notifySubscribersLocked()
}

// notifySubscribersLocked is notifySubscribers for callers already holding
// the render lock (the destruction path).
func (s *Server) notifySubscribersLocked() {
	for c := range s.subscribers {
		c.send(wire.TypeNotify, nil)
	}
}

// queryWindows answers QUERY_WINDOWS with one advertisement per advertised
// window in stacking order, then a zero-length sentinel.
func (s *Server) queryWindows(dest *Connection) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.forEachWindow(func(w *Window) {
		if len(w.clientStrings) == 0 {
			return
		}
		ad := wire.WindowAdvertise{
			Wid:     w.wid,
			Flags:   s.adFlags(w),
			Offsets: w.clientOffsets,
			Strings: w.clientStrings,
		}
		dest.send(wire.TypeWindowAdvertise, ad.Marshal())
	})
	dest.send(wire.TypeWindowAdvertise, wire.WindowAdvertise{}.Marshal())
}
