package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// sendBufferSize is the per-session outbound queue. A member that
	// falls this far behind starts losing frames rather than stalling
	// the room.
	sendBufferSize = 64
)

// Session is one client's live connection to a room. The hub assigns
// its user id on connect; the id is stable for the connection's
// lifetime and never reused for it.
type Session struct {
	UserID string
	Color  string

	room   *Room
	conn   *websocket.Conn
	send   chan []byte
	logger zerolog.Logger
}

// NewSession wraps an upgraded websocket connection. The session is not
// part of any room until the hub registers it.
func NewSession(conn *websocket.Conn, logger zerolog.Logger) *Session {
	userID := ulid.Make().String()
	return &Session{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With().Str("user_id", userID).Logger(),
	}
}

// Run starts the read and write pumps and blocks until the connection
// is gone. The caller must have registered the session in a room.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

// readPump forwards inbound frames to the room until the transport
// fails or closes, then deregisters the session.
func (s *Session) readPump() {
	defer func() {
		s.room.leave(s)
		s.conn.Close()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("connection lost")
			}
			return
		}
		s.room.enqueue(frame{from: s, data: data})
	}
}

// writePump drains the send queue onto the connection. It exits when
// the room closes the queue, sending a close frame on the way out.
func (s *Session) writePump() {
	defer s.conn.Close()

	for msg := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
