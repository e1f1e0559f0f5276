package server

import (
	"net"
	"sync"

	"github.com/wgnet/clacks/handler"
)

// session tracks one accepted connection: its handler dialect, and a
// write lock so that, even under threaded_digest where two dispatches
// for the same connection could finish out of order, their bytes never
// interleave on the wire.
type session struct {
	conn    net.Conn
	handler *handler.Handler
	addr    string

	writeMu sync.Mutex
}

func newSession(conn net.Conn, h *handler.Handler) *session {
	return &session{conn: conn, handler: h, addr: conn.RemoteAddr().String()}
}

func (s *session) close() error {
	return s.conn.Close()
}
