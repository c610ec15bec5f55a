package hub

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codepad-protocol/codepad/internal/metrics"
	"github.com/codepad-protocol/codepad/internal/protocol"
)

// colorPalette is the fixed set of cursor colors, assigned to sessions
// by join order modulo the palette size.
var colorPalette = [...]string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b",
	"#8b5cf6", "#ec4899", "#14b8a6", "#f97316",
}

// flushInterval is how often a room with unflushed edits writes its
// content to the durable store and the snapshot cache.
const flushInterval = 5 * time.Second

// frame is one raw inbound websocket frame with its sender.
type frame struct {
	from *Session
	data []byte
}

// Room owns the authoritative state for one document: its content, the
// set of connected sessions and the relay logic. All room state is
// mutated only by the run loop, so rooms never lock during fan-out and
// different rooms never block each other.
type Room struct {
	DocumentID uuid.UUID

	hub    *Hub
	logger zerolog.Logger

	// Owned by the run loop.
	content   string
	dirty     bool
	edited    bool
	joinCount int
	members   map[*Session]bool

	register   chan *Session
	unregister chan *Session
	inbound    chan frame

	// joining counts sessions handed to this room by the hub that the
	// run loop has not yet registered. The room must not evict itself
	// while it is non-zero. Incremented under the hub lock.
	joining atomic.Int64

	// memberCount mirrors len(members) for stats readers outside the
	// run loop.
	memberCount atomic.Int64

	done    chan struct{} // closed by the hub to stop the room
	stopped chan struct{} // closed by the run loop on exit
}

func newRoom(h *Hub, documentID uuid.UUID, content string, logger zerolog.Logger) *Room {
	return &Room{
		DocumentID: documentID,
		hub:        h,
		logger:     logger.With().Str("document_id", documentID.String()).Logger(),
		content:    content,
		members:    make(map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		inbound:    make(chan frame, 256),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// enqueue hands an inbound frame to the run loop. Frames arriving while
// the room is shutting down are discarded.
func (r *Room) enqueue(f frame) {
	select {
	case r.inbound <- f:
	case <-r.stopped:
	}
}

// leave deregisters a session. Safe to call after the room stopped.
func (r *Room) leave(s *Session) {
	select {
	case r.unregister <- s:
	case <-r.stopped:
	}
}

// run is the room's event loop. It serializes every mutation of the
// member set and content, relays frames, and periodically flushes
// edited content. It exits when the room empties or the hub stops it.
func (r *Room) run() {
	defer close(r.stopped)

	flush := time.NewTicker(flushInterval)
	defer flush.Stop()

	metrics.RoomsActive.Inc()
	defer metrics.RoomsActive.Dec()

	for {
		select {
		case s := <-r.register:
			r.addMember(s)

		case s := <-r.unregister:
			if r.removeMember(s) {
				return
			}

		case f := <-r.inbound:
			r.relay(f)

		case <-flush.C:
			r.flush()

		case <-r.done:
			r.shutdown()
			return
		}
	}
}

// addMember registers a session: assigns its color, pushes the content
// snapshot, and announces the join to everyone else.
func (r *Room) addMember(s *Session) {
	s.Color = colorPalette[r.joinCount%len(colorPalette)]
	r.joinCount++
	r.members[s] = true
	r.joining.Add(-1)
	r.memberCount.Store(int64(len(r.members)))
	metrics.SessionsActive.Inc()

	// The snapshot goes only to the new session; the join notice goes
	// to everyone else.
	r.send(s, protocol.NewDocumentContent(s.UserID, r.content))
	r.broadcast(s, protocol.NewUserJoined(s.UserID))

	r.logger.Info().Str("user_id", s.UserID).Int("members", len(r.members)).Msg("session joined")
}

// removeMember deregisters a session and reports whether the room
// should evict itself.
func (r *Room) removeMember(s *Session) bool {
	if !r.members[s] {
		return false
	}
	delete(r.members, s)
	close(s.send)
	r.memberCount.Store(int64(len(r.members)))
	metrics.SessionsActive.Dec()

	r.broadcast(nil, protocol.NewUserLeft(s.UserID))
	r.logger.Info().Str("user_id", s.UserID).Int("members", len(r.members)).Msg("session left")

	if len(r.members) > 0 {
		return false
	}
	if !r.hub.evict(r) {
		// A join raced the eviction; keep running for it.
		return false
	}
	r.flush()
	r.snapshotVersion()
	return true
}

// relay validates an inbound frame, tags it with the sender's user id
// and fans it out to every other member. Malformed frames and unknown
// types are dropped, never fatal to the session.
func (r *Room) relay(f frame) {
	var env protocol.Envelope
	if err := json.Unmarshal(f.data, &env); err != nil {
		metrics.MessagesDropped.WithLabelValues("malformed").Inc()
		r.logger.Debug().Err(err).Str("user_id", f.from.UserID).Msg("dropping undecodable frame")
		return
	}

	switch env.Type {
	case protocol.TypeTextChange:
		var tc protocol.TextChange
		if err := json.Unmarshal(f.data, &tc); err != nil {
			metrics.MessagesDropped.WithLabelValues("malformed").Inc()
			r.logger.Debug().Err(err).Str("user_id", f.from.UserID).Msg("dropping malformed text change")
			return
		}
		if err := tc.Validate(); err != nil {
			metrics.MessagesDropped.WithLabelValues("malformed").Inc()
			r.logger.Debug().Err(err).Str("user_id", f.from.UserID).Msg("dropping invalid text change")
			return
		}
		// The full-content field is the authoritative copy: the room
		// adopts it last-writer-wins instead of replaying deltas, so
		// joiners always receive live content. An empty field is still
		// an adoption, the sender may have deleted everything.
		r.content = tc.Content
		r.dirty = true
		r.edited = true
		tc.UserID = f.from.UserID
		data, err := json.Marshal(tc)
		if err != nil {
			return
		}
		metrics.OperationsRelayed.WithLabelValues(string(tc.Operation)).Inc()
		r.broadcast(f.from, data)

	case protocol.TypeCursorPosition:
		var cp protocol.CursorPosition
		if err := json.Unmarshal(f.data, &cp); err != nil {
			metrics.MessagesDropped.WithLabelValues("malformed").Inc()
			r.logger.Debug().Err(err).Str("user_id", f.from.UserID).Msg("dropping malformed cursor update")
			return
		}
		if err := cp.Validate(); err != nil {
			metrics.MessagesDropped.WithLabelValues("malformed").Inc()
			return
		}
		cp.UserID = f.from.UserID
		data, err := json.Marshal(cp)
		if err != nil {
			return
		}
		metrics.CursorUpdatesRelayed.Inc()
		r.broadcast(f.from, data)

	default:
		metrics.MessagesDropped.WithLabelValues("unknown_type").Inc()
		r.logger.Debug().Str("type", env.Type).Str("user_id", f.from.UserID).Msg("dropping unknown message type")
	}
}

// broadcast fans a frame out to every member except the sender. Fan-out
// is best effort per member: a full send queue loses the frame for that
// member only.
func (r *Room) broadcast(except *Session, data []byte) {
	for s := range r.members {
		if s == except {
			continue
		}
		r.send(s, data)
	}
}

func (r *Room) send(s *Session, data []byte) {
	select {
	case s.send <- data:
	default:
		metrics.MessagesDropped.WithLabelValues("slow_receiver").Inc()
		r.logger.Warn().Str("user_id", s.UserID).Msg("send queue full, dropping frame")
	}
}

// flush writes edited content to the durable store and refreshes the
// snapshot cache. Failures are logged and retried on the next tick.
func (r *Room) flush() {
	if !r.dirty {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.hub.store.UpdateDocumentContent(ctx, r.DocumentID, r.content); err != nil {
		r.logger.Error().Err(err).Msg("content flush failed")
		return
	}
	if r.hub.cache != nil {
		if err := r.hub.cache.CacheSnapshot(ctx, r.DocumentID.String(), r.content); err != nil {
			r.logger.Warn().Err(err).Msg("snapshot cache refresh failed")
		}
	}
	r.dirty = false
	metrics.SnapshotFlushes.Inc()
}

// snapshotVersion records a version row when an edited room winds down,
// and drops the now-redundant cache entry.
func (r *Room) snapshotVersion() {
	if !r.edited {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.hub.store.CreateVersion(ctx, r.DocumentID, r.content, "session snapshot"); err != nil {
		r.logger.Warn().Err(err).Msg("version snapshot failed")
	}
	if r.hub.cache != nil {
		if err := r.hub.cache.DropSnapshot(ctx, r.DocumentID.String()); err != nil {
			r.logger.Warn().Err(err).Msg("snapshot cache drop failed")
		}
	}
}

// shutdown flushes state and disconnects every member. Used on hub
// close; normal eviction goes through removeMember.
func (r *Room) shutdown() {
	r.flush()
	r.snapshotVersion()
	for s := range r.members {
		delete(r.members, s)
		close(s.send)
		metrics.SessionsActive.Dec()
	}
	r.memberCount.Store(0)
}
