// Package protocol defines the JSON messages exchanged between editor
// clients and the collaboration hub.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types carried in the "type" field of every frame.
const (
	TypeDocumentContent = "document_content"
	TypeTextChange      = "text_change"
	TypeCursorPosition  = "cursor_position"
	TypeUserJoined      = "user_joined"
	TypeUserLeft        = "user_left"
)

// OpKind identifies a text mutation.
type OpKind string

// Operation kinds. Replace carries the whole document and is the
// fallback for edits the delta encoding cannot express.
const (
	OpInsert  OpKind = "insert"
	OpDelete  OpKind = "delete"
	OpReplace OpKind = "replace"
)

// Envelope decodes just enough of a frame to dispatch on its type.
type Envelope struct {
	Type string `json:"type"`
}

// DocumentContent is pushed by the hub to a session immediately after it
// joins a room. It carries the session's assigned user id and the room's
// current content.
type DocumentContent struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// TextChange is one edit operation. Offsets count characters over the
// sender's buffer at the time the edit was made; there is no version
// number, so concurrent senders can produce stale offsets. Content
// carries the sender's full buffer after the edit and stays on the wire
// even when the edit emptied the buffer.
type TextChange struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id,omitempty"`
	Operation OpKind `json:"operation"`
	Position  int    `json:"position"`
	Text      string `json:"text"`
	Length    int    `json:"length,omitempty"`
	Content   string `json:"content"`
}

// Selection is a character range, from <= to.
type Selection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// CursorPosition reports a user's caret offset and, when text is
// selected, the selected range. Never persisted.
type CursorPosition struct {
	Type      string     `json:"type"`
	UserID    string     `json:"user_id,omitempty"`
	Position  int        `json:"position"`
	Selection *Selection `json:"selection,omitempty"`
}

// PresenceEvent announces that a user joined or left a room. These are
// generated by the hub, never by clients.
type PresenceEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// Validate reports whether a text change carries the fields its
// operation requires. Invalid changes are dropped by the hub.
func (tc *TextChange) Validate() error {
	if tc.Position < 0 {
		return fmt.Errorf("negative position %d", tc.Position)
	}
	switch tc.Operation {
	case OpInsert:
		return nil
	case OpDelete:
		if tc.Length < 0 {
			return fmt.Errorf("negative length %d", tc.Length)
		}
		return nil
	case OpReplace:
		return nil
	case "":
		return errors.New("missing operation")
	default:
		return fmt.Errorf("unknown operation %q", tc.Operation)
	}
}

// Validate reports whether a cursor update is well formed.
func (cp *CursorPosition) Validate() error {
	if cp.Position < 0 {
		return fmt.Errorf("negative position %d", cp.Position)
	}
	if cp.Selection != nil && cp.Selection.From > cp.Selection.To {
		return fmt.Errorf("inverted selection [%d,%d]", cp.Selection.From, cp.Selection.To)
	}
	return nil
}

// NewDocumentContent builds the join snapshot for a session.
func NewDocumentContent(userID, content string) []byte {
	return mustMarshal(DocumentContent{Type: TypeDocumentContent, UserID: userID, Content: content})
}

// NewUserJoined builds a join notice.
func NewUserJoined(userID string) []byte {
	return mustMarshal(PresenceEvent{Type: TypeUserJoined, UserID: userID})
}

// NewUserLeft builds a leave notice.
func NewUserLeft(userID string) []byte {
	return mustMarshal(PresenceEvent{Type: TypeUserLeft, UserID: userID})
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All message types marshal cleanly; this is unreachable.
		panic(err)
	}
	return data
}
