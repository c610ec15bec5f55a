package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codepad-protocol/codepad/internal/models"
	"github.com/codepad-protocol/codepad/internal/protocol"
)

// stubStore is an in-memory DataStore covering what the hub touches.
type stubStore struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]*models.Document
	versions []models.DocumentVersion
	updates  int
}

func newStubStore() *stubStore {
	return &stubStore{docs: make(map[uuid.UUID]*models.Document)}
}

func (s *stubStore) Close()                         {}
func (s *stubStore) Ping(ctx context.Context) error { return nil }

func (s *stubStore) CreateDocument(ctx context.Context, title, language string, createdBy *uuid.UUID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &models.Document{ID: uuid.New(), Title: title, Language: language}
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *stubStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *stubStore) ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, int, error) {
	return nil, 0, nil
}

func (s *stubStore) UpdateDocumentContent(ctx context.Context, id uuid.UUID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.Content = content
	}
	s.updates++
	return nil
}

func (s *stubStore) CountDocuments(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubStore) CreateVersion(ctx context.Context, documentID uuid.UUID, content, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append(s.versions, models.DocumentVersion{DocumentID: documentID, Content: content, Description: description})
	return nil
}

func (s *stubStore) ListVersions(ctx context.Context, documentID uuid.UUID, limit int) ([]models.DocumentVersion, error) {
	return nil, nil
}

func (s *stubStore) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	return nil, nil
}
func (s *stubStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, nil
}
func (s *stubStore) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	return nil, nil
}
func (s *stubStore) CountUsers(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubStore) AddCollaborator(ctx context.Context, documentID, userID uuid.UUID, permission string) (*models.Collaborator, error) {
	return nil, nil
}
func (s *stubStore) UpdateCollaboratorPermission(ctx context.Context, documentID, collaboratorID uuid.UUID, permission string) (bool, error) {
	return false, nil
}
func (s *stubStore) ListCollaborators(ctx context.Context, documentID uuid.UUID) ([]models.Collaborator, error) {
	return nil, nil
}

func (s *stubStore) versionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions)
}

func newTestHub(t *testing.T, content string) (*Hub, *stubStore, uuid.UUID) {
	t.Helper()
	st := newStubStore()
	docID := uuid.New()
	st.docs[docID] = &models.Document{ID: docID, Title: "test", Content: content}
	h := New(st, nil, zerolog.Nop())
	t.Cleanup(h.Close)
	return h, st, docID
}

func newTestSession(userID string) *Session {
	return &Session{
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
		logger: zerolog.Nop(),
	}
}

// recv reads one frame from a session's queue or fails the test.
func recv(t *testing.T, s *Session) []byte {
	t.Helper()
	select {
	case data, ok := <-s.send:
		if !ok {
			t.Fatal("send queue closed")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

// expectNothing asserts a session's queue stays empty.
func expectNothing(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func join(t *testing.T, h *Hub, docID uuid.UUID, s *Session) {
	t.Helper()
	if err := h.Join(context.Background(), docID, s); err != nil {
		t.Fatalf("join failed: %v", err)
	}
}

func TestJoinReceivesSnapshot(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")
	s := newTestSession("u1")
	join(t, h, docID, s)

	var snap protocol.DocumentContent
	if err := json.Unmarshal(recv(t, s), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Type != protocol.TypeDocumentContent {
		t.Fatalf("expected snapshot first, got %s", snap.Type)
	}
	if snap.UserID != "u1" || snap.Content != "hello" {
		t.Fatalf("bad snapshot: %+v", snap)
	}
}

func TestJoinUnknownDocument(t *testing.T) {
	h, _, _ := newTestHub(t, "")
	err := h.Join(context.Background(), uuid.New(), newTestSession("u1"))
	if err != ErrDocumentNotFound {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestJoinAnnouncedToOthers(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	join(t, h, docID, s1)
	recv(t, s1) // snapshot

	s2 := newTestSession("u2")
	join(t, h, docID, s2)

	var notice protocol.PresenceEvent
	if err := json.Unmarshal(recv(t, s1), &notice); err != nil {
		t.Fatal(err)
	}
	if notice.Type != protocol.TypeUserJoined || notice.UserID != "u2" {
		t.Fatalf("bad join notice: %+v", notice)
	}

	// The joiner gets the snapshot but never its own join notice.
	var snap protocol.DocumentContent
	if err := json.Unmarshal(recv(t, s2), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Type != protocol.TypeDocumentContent {
		t.Fatalf("expected snapshot, got %s", snap.Type)
	}
	expectNothing(t, s2)
}

func TestColorsAssignedByJoinOrder(t *testing.T) {
	h, _, docID := newTestHub(t, "")

	s1 := newTestSession("u1")
	join(t, h, docID, s1)
	recv(t, s1)

	s2 := newTestSession("u2")
	join(t, h, docID, s2)
	recv(t, s2)

	if s1.Color != colorPalette[0] {
		t.Fatalf("expected %s, got %s", colorPalette[0], s1.Color)
	}
	if s2.Color != colorPalette[1] {
		t.Fatalf("expected %s, got %s", colorPalette[1], s2.Color)
	}
}

func TestRelayExcludesSender(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s1) // u2 joined
	recv(t, s2) // snapshot

	s1.room.enqueue(frame{from: s1, data: []byte(`{"type":"text_change","operation":"insert","position":5,"text":" world","content":"hello world"}`)})

	var tc protocol.TextChange
	if err := json.Unmarshal(recv(t, s2), &tc); err != nil {
		t.Fatal(err)
	}
	if tc.UserID != "u1" {
		t.Fatalf("relayed change must carry sender id, got %q", tc.UserID)
	}
	if tc.Operation != protocol.OpInsert || tc.Position != 5 || tc.Text != " world" {
		t.Fatalf("operation mangled in relay: %+v", tc)
	}

	// Never echoed back to the sender.
	expectNothing(t, s1)
}

func TestCursorRelayedNeverPersisted(t *testing.T) {
	h, st, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s1)
	recv(t, s2)

	s1.room.enqueue(frame{from: s1, data: []byte(`{"type":"cursor_position","position":3,"selection":{"from":1,"to":4}}`)})

	var cp protocol.CursorPosition
	if err := json.Unmarshal(recv(t, s2), &cp); err != nil {
		t.Fatal(err)
	}
	if cp.UserID != "u1" || cp.Position != 3 {
		t.Fatalf("bad relayed cursor: %+v", cp)
	}
	if cp.Selection == nil || cp.Selection.From != 1 || cp.Selection.To != 4 {
		t.Fatalf("selection lost in relay: %+v", cp.Selection)
	}

	st.mu.Lock()
	updates := st.updates
	st.mu.Unlock()
	if updates != 0 {
		t.Fatal("cursor updates must never touch the store")
	}
}

func TestMalformedFramesDropped(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s1)
	recv(t, s2)

	s1.room.enqueue(frame{from: s1, data: []byte(`{not json`)})
	s1.room.enqueue(frame{from: s1, data: []byte(`{"type":"shout","volume":11}`)})
	s1.room.enqueue(frame{from: s1, data: []byte(`{"type":"text_change","operation":"insert","position":-4}`)})

	// The session survives and later frames still relay.
	s1.room.enqueue(frame{from: s1, data: []byte(`{"type":"cursor_position","position":0}`)})

	var cp protocol.CursorPosition
	if err := json.Unmarshal(recv(t, s2), &cp); err != nil {
		t.Fatal(err)
	}
	if cp.Type != protocol.TypeCursorPosition {
		t.Fatalf("expected the valid cursor frame, got %s", cp.Type)
	}
}

func TestJoinerReceivesLiveContent(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s1)
	recv(t, s2)

	s1.room.enqueue(frame{from: s1, data: []byte(`{"type":"text_change","operation":"insert","position":5,"text":" world","content":"hello world"}`)})
	recv(t, s2) // relay done once the other member sees it

	// The room adopts the full content carried on the change, so a
	// later joiner sees the live text, not the stored one.
	s3 := newTestSession("u3")
	join(t, h, docID, s3)

	var snap protocol.DocumentContent
	if err := json.Unmarshal(recv(t, s3), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Content != "hello world" {
		t.Fatalf("expected live content, got %q", snap.Content)
	}
}

func TestDeleteToEmptyAdopted(t *testing.T) {
	h, st, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s1)
	recv(t, s2)

	// A delete that empties the buffer carries an empty full-content
	// field (here even absent from the frame). The room must adopt the
	// emptied document, not keep the last non-empty text.
	room := s1.room
	room.enqueue(frame{from: s1, data: []byte(`{"type":"text_change","operation":"delete","position":0,"text":"","length":5}`)})
	recv(t, s2)

	s3 := newTestSession("u3")
	join(t, h, docID, s3)

	var snap protocol.DocumentContent
	if err := json.Unmarshal(recv(t, s3), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Content != "" {
		t.Fatalf("joiner must see the emptied document, got %q", snap.Content)
	}

	// The emptied content is what eviction persists.
	room.leave(s1)
	room.leave(s2)
	room.leave(s3)
	select {
	case <-room.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("room did not stop after last leave")
	}

	doc, _ := st.GetDocument(context.Background(), docID)
	if doc.Content != "" {
		t.Fatalf("emptied content not flushed, got %q", doc.Content)
	}
}

func TestLeaveBroadcastAndEviction(t *testing.T) {
	h, st, docID := newTestHub(t, "hello")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s1)
	recv(t, s2)

	room := s1.room
	room.enqueue(frame{from: s1, data: []byte(`{"type":"text_change","operation":"replace","content":"edited"}`)})
	recv(t, s2)

	room.leave(s2)

	var notice protocol.PresenceEvent
	if err := json.Unmarshal(recv(t, s1), &notice); err != nil {
		t.Fatal(err)
	}
	if notice.Type != protocol.TypeUserLeft || notice.UserID != "u2" {
		t.Fatalf("bad leave notice: %+v", notice)
	}

	// Last member out winds the room down: flush, version, eviction.
	room.leave(s1)
	select {
	case <-room.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("room did not stop after last leave")
	}

	stats := h.Stats()
	if stats.Rooms != 0 || stats.Sessions != 0 {
		t.Fatalf("expected empty hub, got %+v", stats)
	}

	doc, _ := st.GetDocument(context.Background(), docID)
	if doc.Content != "edited" {
		t.Fatalf("content not flushed, got %q", doc.Content)
	}
	if st.versionCount() != 1 {
		t.Fatalf("expected 1 version snapshot, got %d", st.versionCount())
	}
}

func TestRoomPerDocumentIsolation(t *testing.T) {
	h, st, docA := newTestHub(t, "aaa")
	docB := uuid.New()
	st.docs[docB] = &models.Document{ID: docB, Title: "b", Content: "bbb"}

	sa := newTestSession("ua")
	sb := newTestSession("ub")
	join(t, h, docA, sa)
	recv(t, sa)
	join(t, h, docB, sb)
	recv(t, sb)

	if sa.room == sb.room {
		t.Fatal("different documents must get different rooms")
	}

	sa.room.enqueue(frame{from: sa, data: []byte(`{"type":"cursor_position","position":1}`)})
	expectNothing(t, sb)

	if h.Stats().Rooms != 2 {
		t.Fatalf("expected 2 rooms, got %d", h.Stats().Rooms)
	}
}

func TestSameDocumentSharesRoom(t *testing.T) {
	h, _, docID := newTestHub(t, "")

	s1 := newTestSession("u1")
	s2 := newTestSession("u2")
	join(t, h, docID, s1)
	recv(t, s1)
	join(t, h, docID, s2)
	recv(t, s2)

	if s1.room != s2.room {
		t.Fatal("sessions on one document must share a room")
	}
}

func TestCloseRejectsJoins(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")
	h.Close()

	err := h.Join(context.Background(), docID, newTestSession("u1"))
	if err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseDisconnectsMembers(t *testing.T) {
	h, _, docID := newTestHub(t, "hello")

	s := newTestSession("u1")
	join(t, h, docID, s)
	recv(t, s)

	h.Close()

	// The send queue closes once the room shuts down.
	select {
	case _, ok := <-s.send:
		if ok {
			// Drain any trailing frame, then expect closure.
			if _, ok := <-s.send; ok {
				t.Fatal("send queue still open after close")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send queue not closed on hub close")
	}
}

func TestSlowReceiverDoesNotBlockRoom(t *testing.T) {
	h, _, docID := newTestHub(t, "")

	slow := &Session{UserID: "slow", send: make(chan []byte, 1), logger: zerolog.Nop()}
	fast := newTestSession("fast")
	join(t, h, docID, slow)
	recv(t, slow)
	join(t, h, docID, fast)
	recv(t, slow) // fast joined
	recv(t, fast)

	// Fill the slow member's queue, then keep relaying. The room must
	// drop frames for it rather than stall the others.
	for i := 0; i < 5; i++ {
		fast.room.enqueue(frame{from: fast, data: []byte(`{"type":"cursor_position","position":1}`)})
	}

	deadline := time.After(2 * time.Second)
	received := 0
	for received < 1 {
		select {
		case <-slow.send:
			received++
		case <-deadline:
			t.Fatal("slow receiver starved entirely")
		}
	}
}
