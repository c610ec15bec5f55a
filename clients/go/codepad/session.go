package codepad

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/codepad-protocol/codepad/internal/protocol"
)

// reconnectDelay is the fixed pause between reconnect attempts. There
// is no growth and no retry cap; the session retries forever.
const reconnectDelay = 3 * time.Second

// Connection states.
const (
	StateDisconnected int32 = iota
	StateConnecting
	StateConnected
)

// EditorSession is one client's live connection to a document room. It
// owns the editor replica and presence tracker for that document and
// keeps them in sync with the hub: local edits go out as operations,
// inbound frames are dispatched by type.
type EditorSession struct {
	wsURL    string
	editor   *Editor
	presence *Tracker
	drafts   *DraftStore // may be nil
	docID    string

	state  atomic.Int32
	userID atomic.Value // string, assigned by the hub per connection

	mu   sync.Mutex
	conn *websocket.Conn

	// OnStateChange, if set, is called with the new state on every
	// transition. Used for a connection indicator, nothing more.
	OnStateChange func(state int32)
}

// NewEditorSession wires an editor and presence tracker to a document's
// sync endpoint. wsURL is the full websocket URL including the document
// id. drafts may be nil to skip local draft persistence.
func NewEditorSession(wsURL, docID string, editor *Editor, presence *Tracker, drafts *DraftStore) *EditorSession {
	s := &EditorSession{
		wsURL:    wsURL,
		editor:   editor,
		presence: presence,
		drafts:   drafts,
		docID:    docID,
	}
	s.userID.Store("")

	// Local mutations go out on the wire; remote ones already came
	// from it. The source tag is what breaks the feedback loop.
	editor.OnChange(func(ev ChangeEvent) {
		if ev.Source.Remote {
			return
		}
		s.SendChange(ev.Op)
		if s.drafts != nil {
			_ = s.drafts.Save(s.docID, ev.Op.Content)
		}
	})

	return s
}

// State returns the current connection state.
func (s *EditorSession) State() int32 {
	return s.state.Load()
}

// UserID returns the identifier the hub assigned on the current
// connection, or "" before the first snapshot arrives.
func (s *EditorSession) UserID() string {
	return s.userID.Load().(string)
}

// Run connects and serves the session until ctx is cancelled,
// reconnecting after every drop with a fixed delay.
func (s *EditorSession) Run(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(reconnectDelay), ctx)

	return backoff.Retry(func() error {
		if err := s.connectAndServe(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		// Clean shutdown from the server side still reconnects.
		return errors.New("connection closed")
	}, b)
}

func (s *EditorSession) connectAndServe(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		s.setState(StateDisconnected)
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateConnected)

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
		s.setState(StateDisconnected)
	}()

	// Close the transport when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.dispatch(data)
	}
}

// dispatch routes one inbound frame by its type field. Malformed frames
// and unknown types are dropped.
func (s *EditorSession) dispatch(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	switch env.Type {
	case protocol.TypeDocumentContent:
		var msg protocol.DocumentContent
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		s.userID.Store(msg.UserID)
		s.editor.SetContent(msg.Content)

	case protocol.TypeTextChange:
		var tc protocol.TextChange
		if err := json.Unmarshal(data, &tc); err != nil {
			return
		}
		s.editor.ApplyRemote(tc)

	case protocol.TypeCursorPosition:
		var cp protocol.CursorPosition
		if err := json.Unmarshal(data, &cp); err != nil {
			return
		}
		s.presence.UpdateCursor(cp.UserID, cp.Position, cp.Selection)

	case protocol.TypeUserJoined:
		var ev protocol.PresenceEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		s.presence.Join(ev.UserID)

	case protocol.TypeUserLeft:
		var ev protocol.PresenceEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		s.presence.Leave(ev.UserID)
	}
}

// SendChange sends a text operation. Dropped silently when not
// connected; offline edits stay in the local buffer but leave the sync
// stream, and reconnecting replaces the buffer with a fresh snapshot.
func (s *EditorSession) SendChange(tc protocol.TextChange) {
	tc.Type = protocol.TypeTextChange
	s.send(tc)
}

// SendCursor broadcasts the local caret position and, when text is
// selected, the selected range. Not debounced.
func (s *EditorSession) SendCursor(position int, selection *protocol.Selection) {
	s.send(protocol.CursorPosition{
		Type:      protocol.TypeCursorPosition,
		Position:  position,
		Selection: selection,
	})
}

func (s *EditorSession) send(v interface{}) {
	if s.state.Load() != StateConnected {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	s.mu.Lock()
	conn := s.conn
	if conn != nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	s.mu.Unlock()
}

func (s *EditorSession) setState(state int32) {
	if s.state.Swap(state) == state {
		return
	}
	if s.OnStateChange != nil {
		s.OnStateChange(state)
	}
}
