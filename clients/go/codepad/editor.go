package codepad

import (
	"sync"

	"github.com/codepad-protocol/codepad/internal/protocol"
)

// Origin tags a local edit with the gesture that produced it. The tag
// decides which wire operation encodes the edit.
type Origin string

// Local edit origins.
const (
	OriginInput  Origin = "input"  // direct typing
	OriginPaste  Origin = "paste"  // clipboard paste
	OriginDelete Origin = "delete" // backspace/delete
	OriginCut    Origin = "cut"    // clipboard cut
	OriginOther  Origin = "other"  // undo/redo, programmatic replace
)

// Change describes one local buffer mutation before encoding.
type Change struct {
	From     int    // character offset the mutation starts at
	Removed  string // text removed at From, "" for pure inserts
	Inserted string // text inserted at From, "" for pure deletions
	Origin   Origin
}

// Source says where a buffer mutation came from. Subscribers check it
// before re-emitting a change on the wire, which is what prevents a
// received operation from being sent straight back out.
type Source struct {
	Remote   bool
	SenderID string // set when Remote
}

// ChangeEvent is delivered to the editor's subscriber after every
// buffer mutation, local or remote.
type ChangeEvent struct {
	Op     protocol.TextChange
	Source Source
}

// Editor is a text buffer replica kept in sync by exchanging operations
// with the hub. Offsets are counted in characters, not bytes.
type Editor struct {
	mu     sync.Mutex
	buf    []rune
	notify func(ChangeEvent)
}

// NewEditor creates an editor with the given initial content.
func NewEditor(content string) *Editor {
	return &Editor{buf: []rune(content)}
}

// OnChange registers the single change subscriber. Must be called
// before the editor is shared between goroutines.
func (e *Editor) OnChange(fn func(ChangeEvent)) {
	e.notify = fn
}

// Content returns the current buffer content.
func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buf)
}

// Len returns the buffer length in characters.
func (e *Editor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// Apply performs a local edit and encodes it as exactly one wire
// operation: typing and paste become insert, backspace and cut become
// delete, anything else falls back to replace carrying the whole
// buffer. The returned operation always carries the full post-edit
// content so the hub can adopt it.
func (e *Editor) Apply(ch Change) protocol.TextChange {
	e.mu.Lock()

	from := clamp(ch.From, 0, len(e.buf))
	removed := []rune(ch.Removed)
	end := clamp(from+len(removed), from, len(e.buf))

	next := make([]rune, 0, len(e.buf)-(end-from)+len([]rune(ch.Inserted)))
	next = append(next, e.buf[:from]...)
	next = append(next, []rune(ch.Inserted)...)
	next = append(next, e.buf[end:]...)
	e.buf = next

	tc := protocol.TextChange{
		Type:    protocol.TypeTextChange,
		Content: string(e.buf),
	}
	switch {
	case (ch.Origin == OriginInput || ch.Origin == OriginPaste) && ch.Removed == "":
		tc.Operation = protocol.OpInsert
		tc.Position = from
		tc.Text = ch.Inserted
	case (ch.Origin == OriginDelete || ch.Origin == OriginCut) && ch.Inserted == "":
		tc.Operation = protocol.OpDelete
		tc.Position = from
		tc.Length = len(removed)
	default:
		// Paste-over-selection, undo/redo and programmatic edits
		// cannot be expressed as a single delta. Ship the whole
		// buffer instead so replicas converge.
		tc.Operation = protocol.OpReplace
	}

	notify := e.notify
	e.mu.Unlock()

	if notify != nil {
		notify(ChangeEvent{Op: tc, Source: Source{Remote: false}})
	}
	return tc
}

// ApplyRemote applies an operation received from another user. Stale
// offsets are clamped to the buffer bounds rather than rejected, which
// keeps the session alive at the cost of strict correctness.
func (e *Editor) ApplyRemote(tc protocol.TextChange) {
	e.mu.Lock()

	switch tc.Operation {
	case protocol.OpInsert:
		pos := clamp(tc.Position, 0, len(e.buf))
		ins := []rune(tc.Text)
		next := make([]rune, 0, len(e.buf)+len(ins))
		next = append(next, e.buf[:pos]...)
		next = append(next, ins...)
		next = append(next, e.buf[pos:]...)
		e.buf = next
	case protocol.OpDelete:
		pos := clamp(tc.Position, 0, len(e.buf))
		end := clamp(pos+tc.Length, pos, len(e.buf))
		e.buf = append(e.buf[:pos], e.buf[end:]...)
	case protocol.OpReplace:
		e.buf = []rune(tc.Content)
	default:
		e.mu.Unlock()
		return
	}

	notify := e.notify
	e.mu.Unlock()

	if notify != nil {
		notify(ChangeEvent{Op: tc, Source: Source{Remote: true, SenderID: tc.UserID}})
	}
}

// SetContent overwrites the buffer with a hub snapshot. Always a full
// overwrite, regardless of prior local state.
func (e *Editor) SetContent(content string) {
	e.mu.Lock()
	e.buf = []rune(content)
	notify := e.notify
	snapshot := protocol.TextChange{
		Type:      protocol.TypeTextChange,
		Operation: protocol.OpReplace,
		Content:   content,
	}
	e.mu.Unlock()

	if notify != nil {
		notify(ChangeEvent{Op: snapshot, Source: Source{Remote: true}})
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
