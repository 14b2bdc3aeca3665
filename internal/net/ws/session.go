package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds how long a single frame write may stall before
	// the session is considered dead.
	writeTimeout = 10 * time.Second
	// pongTimeout is how long a silent peer survives.
	pongTimeout = 60 * time.Second
	// pingInterval must undercut pongTimeout with margin.
	pingInterval = 25 * time.Second
)

// session serializes writes to one websocket connection. gorilla permits a
// single concurrent writer; the frame pump and the read loop's replies
// both go through here.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newSession(conn *websocket.Conn) *session {
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	return &session{conn: conn}
}

func (s *session) writeText(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) writePing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *session) writeClose(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := websocket.FormatCloseMessage(code, reason)
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	s.conn.WriteMessage(websocket.CloseMessage, message)
}

func (s *session) close() error {
	return s.conn.Close()
}
