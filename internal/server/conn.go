package server

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"aster/internal/wire"
)

// writeTimeout bounds a single message write so one stuck client cannot
// stall the thread that happens to be sending to it.
const writeTimeout = time.Second

// Connection is one client endpoint. Its window list is insertion-ordered;
// list membership is guarded by the server's render lock because the render
// thread unlinks windows during destruction.
type Connection struct {
	id string
	c  net.Conn

	wmu sync.Mutex

	// windows guarded by Server.renderMu.
	windows []*Window
}

func newConnection(c net.Conn) *Connection {
	return &Connection{
		id: uuid.NewString()[:8],
		c:  c,
	}
}

// send frames and writes one message to the client. Errors are logged and
// otherwise swallowed; a broken client is reaped by its reader loop.
func (c *Connection) send(typ uint32, body []byte) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := wire.WriteMessage(c.c, typ, body); err != nil {
		log.Debug().Str("client", c.id).Uint32("type", typ).Err(err).Msg("send failed")
	}
}

// removeWindow unlinks a window from the connection's list.
// Caller holds the render lock.
func (c *Connection) removeWindow(w *Window) {
	for i, win := range c.windows {
		if win == w {
			c.windows = append(c.windows[:i], c.windows[i+1:]...)
			return
		}
	}
}
