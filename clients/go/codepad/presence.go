package codepad

import (
	"sort"
	"sync"

	"github.com/codepad-protocol/codepad/internal/protocol"
)

// palette is the fixed set of cursor colors, assigned to peers in join
// order and cycled when exhausted.
var palette = []string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b",
	"#8b5cf6", "#ec4899", "#14b8a6", "#f97316",
}

// Peer is one remote user's presence state.
type Peer struct {
	UserID    string
	Color     string
	Cursor    int
	HasCursor bool
	Selection *protocol.Selection
}

// Tracker maintains the set of connected peers, their colors and their
// last known cursor state.
type Tracker struct {
	mu     sync.Mutex
	peers  map[string]*Peer
	joined int // total joins ever seen, drives color assignment
	notify func()
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{peers: make(map[string]*Peer)}
}

// OnUpdate registers a callback fired after every presence change, for
// refreshing a member list display.
func (t *Tracker) OnUpdate(fn func()) {
	t.notify = fn
}

// Join tracks a new peer and assigns it the next palette color. Joining
// an already-tracked peer is a no-op.
func (t *Tracker) Join(userID string) {
	t.mu.Lock()
	if _, ok := t.peers[userID]; ok {
		t.mu.Unlock()
		return
	}
	t.peers[userID] = &Peer{
		UserID: userID,
		Color:  palette[t.joined%len(palette)],
	}
	t.joined++
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Leave removes a peer and its cursor state.
func (t *Tracker) Leave(userID string) {
	t.mu.Lock()
	_, ok := t.peers[userID]
	delete(t.peers, userID)
	notify := t.notify
	t.mu.Unlock()

	if ok && notify != nil {
		notify()
	}
}

// UpdateCursor records a peer's latest cursor state. A cursor update
// for an untracked peer is dropped; join notices and cursor messages
// are not ordered relative to each other on the wire.
func (t *Tracker) UpdateCursor(userID string, position int, selection *protocol.Selection) {
	t.mu.Lock()
	p, ok := t.peers[userID]
	if !ok {
		t.mu.Unlock()
		return
	}
	p.Cursor = position
	p.HasCursor = true
	p.Selection = selection
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Peers returns a snapshot of tracked peers, ordered by user id.
func (t *Tracker) Peers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Count returns the number of tracked peers.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}
