package push

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"petsync/internal/logger"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMsgSize     = 1 << 13 // 8 KB
	sendBufferSize = 32
)

// MessageSink receives every inbound frame from a session for dispatch.
type MessageSink interface {
	HandleMessage(ctx context.Context, raw []byte)
}

// Session is one live push connection. The hub owns its membership in the
// fan-out set; the session owns its two pumps and the underlying conn.
type Session struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	sink MessageSink
	log  *logger.Logger

	send chan []byte
}

func NewSession(hub *Hub, conn *websocket.Conn, sink MessageSink, log *logger.Logger) *Session {
	return &Session{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		sink: sink,
		log:  log,
		send: make(chan []byte, sendBufferSize),
	}
}

// Start registers the session and launches its pumps. The hub queues the
// initial snapshot during registration, before any later broadcast.
func (s *Session) Start() {
	s.hub.Register(s)
	go s.writePump()
	go s.readPump()
}

// trySend queues a frame without blocking. False means the session buffer is
// full or closed and the session should be dropped. Called from the hub
// goroutine only.
func (s *Session) trySend(msg []byte) (ok bool) {
	defer func() {
		// A concurrently closed send channel must not take the hub down.
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// readPump feeds inbound frames to the sink and detects disconnects.
// Dispatch errors never produce a reply frame; the channel carries only
// state and event frames server-to-client.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debugw("session_read_closed", "session", s.ID, "err", err)
			return
		}
		s.sink.HandleMessage(context.Background(), raw)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings. Exits when the hub closes the send channel or a write fails.
func (s *Session) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debugw("session_write_failed", "session", s.ID, "err", err)
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
