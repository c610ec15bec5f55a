package codepad

import (
	"sync"
	"time"
)

// searchDebounce is how long the searcher waits for typing to settle
// before issuing a query.
const searchDebounce = 300 * time.Millisecond

// Searcher debounces user directory lookups so that a query is only
// issued once typing pauses. Queries shorter than two characters are
// dropped, matching the server's minimum.
type Searcher struct {
	client *Client
	limit  int

	mu    sync.Mutex
	timer *time.Timer
}

// NewSearcher creates a debounced searcher over the given client.
func NewSearcher(client *Client, limit int) *Searcher {
	if limit <= 0 {
		limit = 10
	}
	return &Searcher{client: client, limit: limit}
}

// Query schedules a search for q, cancelling any pending one. fn is
// called with the results once the debounce window elapses.
func (s *Searcher) Query(q string, fn func([]User, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	if len(q) < 2 {
		return
	}

	s.timer = time.AfterFunc(searchDebounce, func() {
		users, err := s.client.SearchUsers(q, s.limit)
		fn(users, err)
	})
}

// Cancel drops any pending query.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
