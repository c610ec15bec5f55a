// Package hub owns the in-memory collaboration state: one room per
// open document, each room exclusively owning its member set and
// content and mutating them only through its own event loop.
package hub

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codepad-protocol/codepad/internal/store"
)

// ErrDocumentNotFound is returned when joining a document that does not
// exist in the store.
var ErrDocumentNotFound = errors.New("document not found")

// ErrClosed is returned when joining after the hub has shut down.
var ErrClosed = errors.New("hub is closed")

// Hub is the registry of active rooms, keyed by document id. It
// guarantees at most one room per document at any time.
type Hub struct {
	store  store.DataStore
	cache  *store.RedisStore // may be nil
	logger zerolog.Logger

	mu     sync.Mutex
	rooms  map[uuid.UUID]*Room
	closed bool
}

// New creates a hub backed by the given stores. cache may be nil when
// Redis is not configured.
func New(dataStore store.DataStore, cache *store.RedisStore, logger zerolog.Logger) *Hub {
	return &Hub{
		store:  dataStore,
		cache:  cache,
		logger: logger,
		rooms:  make(map[uuid.UUID]*Room),
	}
}

// Join finds or creates the room for a document and registers the
// session in it. On success the room will push the content snapshot to
// the session and announce the join to the other members.
func (h *Hub) Join(ctx context.Context, documentID uuid.UUID, s *Session) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}

	r, ok := h.rooms[documentID]
	if !ok {
		content, err := h.loadContent(ctx, documentID)
		if err != nil {
			h.mu.Unlock()
			return err
		}
		r = newRoom(h, documentID, content, h.logger)
		h.rooms[documentID] = r
		go r.run()
		h.logger.Info().Str("document_id", documentID.String()).Msg("room created")
	}
	// Marked before the lock is released so the room cannot evict
	// itself between the handoff and the register below.
	r.joining.Add(1)
	h.mu.Unlock()

	s.room = r
	select {
	case r.register <- s:
		return nil
	case <-r.stopped:
		r.joining.Add(-1)
		return ErrClosed
	}
}

// loadContent resolves a document's current content, preferring the
// snapshot cache over the durable store.
func (h *Hub) loadContent(ctx context.Context, documentID uuid.UUID) (string, error) {
	if h.cache != nil {
		content, ok, err := h.cache.GetSnapshot(ctx, documentID.String())
		if err != nil {
			h.logger.Warn().Err(err).Msg("snapshot cache read failed")
		} else if ok {
			return content, nil
		}
	}

	doc, err := h.store.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", ErrDocumentNotFound
	}
	return doc.Content, nil
}

// evict removes a room from the registry. It returns false, aborting
// the eviction, when a join is already pending for the room.
func (h *Hub) evict(r *Room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.joining.Load() > 0 {
		return false
	}
	delete(h.rooms, r.DocumentID)
	h.logger.Info().Str("document_id", r.DocumentID.String()).Msg("room evicted")
	return true
}

// Stats reports live room and session counts.
type Stats struct {
	Rooms    int   `json:"rooms"`
	Sessions int64 `json:"sessions"`
}

// Stats returns a point-in-time view of hub occupancy.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Stats{Rooms: len(h.rooms)}
	for _, r := range h.rooms {
		st.Sessions += r.memberCount.Load()
	}
	return st
}

// Close stops every room, flushing edited content and disconnecting all
// sessions, and rejects further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.rooms = make(map[uuid.UUID]*Room)
	h.mu.Unlock()

	for _, r := range rooms {
		close(r.done)
		<-r.stopped
	}
}
