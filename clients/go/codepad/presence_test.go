package codepad

import (
	"testing"

	"github.com/codepad-protocol/codepad/internal/protocol"
)

func TestPresenceSetMatchesEvents(t *testing.T) {
	tr := NewTracker()

	events := []struct {
		join   bool
		userID string
	}{
		{true, "a"}, {true, "b"}, {true, "c"},
		{false, "b"},
		{true, "d"},
		{false, "a"},
	}
	for _, ev := range events {
		if ev.join {
			tr.Join(ev.userID)
		} else {
			tr.Leave(ev.userID)
		}
	}

	peers := tr.Peers()
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if peers[0].UserID != "c" || peers[1].UserID != "d" {
		t.Fatalf("wrong peers: %+v", peers)
	}
}

func TestColorsAssignedByJoinOrder(t *testing.T) {
	tr := NewTracker()

	tr.Join("first")
	tr.Join("second")

	peers := tr.Peers()
	byID := map[string]Peer{}
	for _, p := range peers {
		byID[p.UserID] = p
	}
	if byID["first"].Color != palette[0] {
		t.Fatalf("first joiner should get %s, got %s", palette[0], byID["first"].Color)
	}
	if byID["second"].Color != palette[1] {
		t.Fatalf("second joiner should get %s, got %s", palette[1], byID["second"].Color)
	}
}

func TestColorsCycleWhenPaletteExhausted(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < len(palette); i++ {
		tr.Join(string(rune('a' + i)))
	}
	tr.Join("overflow")

	for _, p := range tr.Peers() {
		if p.UserID == "overflow" {
			if p.Color != palette[0] {
				t.Fatalf("expected palette to cycle to %s, got %s", palette[0], p.Color)
			}
			return
		}
	}
	t.Fatal("overflow peer not tracked")
}

func TestRejoinKeepsColorSequence(t *testing.T) {
	tr := NewTracker()

	tr.Join("a")
	tr.Leave("a")
	tr.Join("b")

	// Color assignment counts every join ever seen, not current size.
	for _, p := range tr.Peers() {
		if p.UserID == "b" && p.Color != palette[1] {
			t.Fatalf("expected %s for second join, got %s", palette[1], p.Color)
		}
	}
}

func TestDuplicateJoinIgnored(t *testing.T) {
	tr := NewTracker()

	tr.Join("a")
	tr.Join("a")

	if tr.Count() != 1 {
		t.Fatalf("expected 1 peer, got %d", tr.Count())
	}
	if tr.Peers()[0].Color != palette[0] {
		t.Fatal("duplicate join should not advance the palette")
	}
}

func TestCursorBeforeJoinIsDropped(t *testing.T) {
	tr := NewTracker()

	// Join and cursor ordering is not guaranteed on the wire.
	tr.UpdateCursor("ghost", 10, nil)
	if tr.Count() != 0 {
		t.Fatal("cursor update must not create a peer")
	}

	tr.Join("ghost")
	for _, p := range tr.Peers() {
		if p.HasCursor {
			t.Fatal("cursor state should be empty until an update after join")
		}
	}
}

func TestCursorUpdateStored(t *testing.T) {
	tr := NewTracker()
	tr.Join("a")

	sel := &protocol.Selection{From: 2, To: 8}
	tr.UpdateCursor("a", 5, sel)

	p := tr.Peers()[0]
	if !p.HasCursor || p.Cursor != 5 {
		t.Fatalf("cursor not stored: %+v", p)
	}
	if p.Selection == nil || p.Selection.From != 2 || p.Selection.To != 8 {
		t.Fatalf("selection not stored: %+v", p.Selection)
	}
}

func TestLeaveRemovesCursor(t *testing.T) {
	tr := NewTracker()
	tr.Join("a")
	tr.UpdateCursor("a", 3, nil)
	tr.Leave("a")

	if tr.Count() != 0 {
		t.Fatal("peer should be gone after leave")
	}

	// A cursor arriving after the leave stays dropped.
	tr.UpdateCursor("a", 4, nil)
	if tr.Count() != 0 {
		t.Fatal("stale cursor must not resurrect a departed peer")
	}
}

func TestUpdateCallbackFires(t *testing.T) {
	tr := NewTracker()
	var calls int
	tr.OnUpdate(func() { calls++ })

	tr.Join("a")                 // fires
	tr.Join("a")                 // duplicate, no fire
	tr.UpdateCursor("a", 1, nil) // fires
	tr.Leave("a")                // fires
	tr.Leave("a")                // already gone, no fire

	if calls != 3 {
		t.Fatalf("expected 3 callbacks, got %d", calls)
	}
}
