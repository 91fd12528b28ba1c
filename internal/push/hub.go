// Package push owns the live-session set: it delivers the initial snapshot
// when a session opens and fans state-change frames out to every open
// session. Fan-out is best-effort; a slow or broken session is dropped
// without affecting the others or the mutation that triggered the frame.
package push

import (
	"context"
	"encoding/json"
	"time"

	"petsync/internal/logger"
	"petsync/internal/models"
)

// Snapshotter supplies the connect-time frame: feeder state plus the full
// current schedule set.
type Snapshotter interface {
	ConnectSnapshot(ctx context.Context) models.ConnectSnapshot
}

const (
	broadcastBuffer = 256
	snapshotTimeout = 5 * time.Second
)

// Hub tracks open sessions and serializes register/unregister/broadcast
// through one goroutine, so a joining session always receives its snapshot
// before any broadcast that follows its registration.
type Hub struct {
	log *logger.Logger

	register   chan *Session
	unregister chan *Session
	broadcast  chan []byte

	sessions map[*Session]bool
	snap     Snapshotter
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:        log,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan []byte, broadcastBuffer),
		sessions:   make(map[*Session]bool),
	}
}

// SetSnapshotter wires the snapshot source. Must be called before Run.
func (h *Hub) SetSnapshotter(s Snapshotter) {
	h.snap = s
}

// Run owns the session set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				h.dropSession(s)
			}
			return
		case s := <-h.register:
			h.sessions[s] = true
			h.log.Infow("session_open", "session", s.ID, "sessions", len(h.sessions))
			h.sendSnapshot(s)
		case s := <-h.unregister:
			if h.sessions[s] {
				h.dropSession(s)
				h.log.Infow("session_closed", "session", s.ID, "sessions", len(h.sessions))
			}
		case msg := <-h.broadcast:
			for s := range h.sessions {
				if !s.trySend(msg) {
					// One stuck session must not block the fan-out.
					h.dropSession(s)
					h.log.Warnw("session_dropped_slow", "session", s.ID)
				}
			}
		}
	}
}

// Register hands a freshly opened session to the hub.
func (h *Hub) Register(s *Session) {
	h.register <- s
}

// Unregister removes a closed session; delivery stops immediately.
func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// BroadcastState queues a feeder-state frame for every open session.
func (h *Hub) BroadcastState(snap models.FeederSnapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		h.log.Errorw("broadcast_state_marshal_failed", "err", err)
		return
	}
	h.enqueue(b)
}

// BroadcastEvent queues a discrete event frame for every open session.
func (h *Hub) BroadcastEvent(ev models.Event) {
	b, err := json.Marshal(ev.WireMap())
	if err != nil {
		h.log.Errorw("broadcast_event_marshal_failed", "type", ev.Type, "err", err)
		return
	}
	h.enqueue(b)
}

// enqueue never blocks the mutation pipeline; an overflowing hub drops the
// frame and logs it.
func (h *Hub) enqueue(b []byte) {
	select {
	case h.broadcast <- b:
	default:
		h.log.Warnw("broadcast_queue_full_frame_dropped")
	}
}

func (h *Hub) sendSnapshot(s *Session) {
	if h.snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snap := h.snap.ConnectSnapshot(ctx)
	b, err := json.Marshal(snap)
	if err != nil {
		h.log.Errorw("snapshot_marshal_failed", "session", s.ID, "err", err)
		return
	}
	if !s.trySend(b) {
		h.dropSession(s)
	}
}

func (h *Hub) dropSession(s *Session) {
	delete(h.sessions, s)
	close(s.send)
}
