package codepad

import (
	"encoding/json"
	"testing"

	"github.com/codepad-protocol/codepad/internal/protocol"
)

func TestInsertRoundTrip(t *testing.T) {
	a := NewEditor("hello")
	b := NewEditor("hello")

	op := a.Apply(Change{From: 5, Inserted: " world", Origin: OriginInput})
	if op.Operation != protocol.OpInsert || op.Position != 5 || op.Text != " world" {
		t.Fatalf("bad operation: %+v", op)
	}

	b.ApplyRemote(op)
	if a.Content() != "hello world" || b.Content() != "hello world" {
		t.Fatalf("replicas differ: %q vs %q", a.Content(), b.Content())
	}
}

func TestDeleteRoundTrip(t *testing.T) {
	a := NewEditor("hello world")
	b := NewEditor("hello world")

	op := a.Apply(Change{From: 0, Removed: "hello", Origin: OriginDelete})
	if op.Operation != protocol.OpDelete || op.Position != 0 || op.Length != 5 {
		t.Fatalf("bad operation: %+v", op)
	}

	b.ApplyRemote(op)
	if a.Content() != " world" || b.Content() != " world" {
		t.Fatalf("replicas differ: %q vs %q", a.Content(), b.Content())
	}
}

func TestReplaceFallback(t *testing.T) {
	a := NewEditor("hello world")
	b := NewEditor("out of sync entirely")

	// Paste over a selection removes and inserts at once; the delta
	// encoding cannot express that, so the whole buffer ships.
	op := a.Apply(Change{From: 6, Removed: "world", Inserted: "there", Origin: OriginPaste})
	if op.Operation != protocol.OpReplace {
		t.Fatalf("expected replace, got %s", op.Operation)
	}
	if op.Content != "hello there" {
		t.Fatalf("replace should carry full buffer, got %q", op.Content)
	}

	b.ApplyRemote(op)
	if b.Content() != "hello there" {
		t.Fatalf("replace did not converge: %q", b.Content())
	}
}

func TestUndoUsesReplace(t *testing.T) {
	a := NewEditor("hello")
	op := a.Apply(Change{From: 0, Removed: "hello", Inserted: "goodbye", Origin: OriginOther})
	if op.Operation != protocol.OpReplace {
		t.Fatalf("expected replace for other origins, got %s", op.Operation)
	}
}

func TestOperationCarriesFullContent(t *testing.T) {
	a := NewEditor("hello")
	op := a.Apply(Change{From: 5, Inserted: "!", Origin: OriginInput})
	if op.Content != "hello!" {
		t.Fatalf("insert should still carry full content, got %q", op.Content)
	}
}

func TestDeleteToEmptyKeepsContentOnWire(t *testing.T) {
	e := NewEditor("hello")
	op := e.Apply(Change{From: 0, Removed: "hello", Origin: OriginDelete})

	if op.Operation != protocol.OpDelete || op.Content != "" {
		t.Fatalf("expected delete with empty content, got %+v", op)
	}

	// The empty content field must reach the wire, or the hub would
	// never adopt the emptied document.
	data, err := json.Marshal(op)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if v, ok := decoded["content"]; !ok || v != "" {
		t.Fatalf("emptied content dropped from the frame: %s", data)
	}
}

func TestStaleOffsetClamped(t *testing.T) {
	e := NewEditor("hi")

	// Offsets computed against a longer buffer. Clamp, don't fail.
	e.ApplyRemote(protocol.TextChange{Operation: protocol.OpDelete, Position: 1, Length: 50})
	if e.Content() != "h" {
		t.Fatalf("expected %q, got %q", "h", e.Content())
	}

	e.ApplyRemote(protocol.TextChange{Operation: protocol.OpInsert, Position: 99, Text: "!"})
	if e.Content() != "h!" {
		t.Fatalf("expected %q, got %q", "h!", e.Content())
	}
}

func TestSnapshotOverwrites(t *testing.T) {
	e := NewEditor("anything local, possibly diverged")
	e.SetContent("authoritative")
	if e.Content() != "authoritative" {
		t.Fatalf("snapshot must fully overwrite, got %q", e.Content())
	}

	// Idempotent regardless of prior state.
	e.SetContent("authoritative")
	if e.Content() != "authoritative" {
		t.Fatalf("repeat snapshot changed content: %q", e.Content())
	}
}

func TestRemoteChangesNotReEmitted(t *testing.T) {
	e := NewEditor("hello")

	var localOps, remoteOps int
	e.OnChange(func(ev ChangeEvent) {
		if ev.Source.Remote {
			remoteOps++
		} else {
			localOps++
		}
	})

	e.ApplyRemote(protocol.TextChange{
		Operation: protocol.OpInsert, Position: 5, Text: "!", UserID: "peer",
	})
	e.Apply(Change{From: 6, Inserted: "?", Origin: OriginInput})

	if localOps != 1 {
		t.Fatalf("expected 1 local event, got %d", localOps)
	}
	if remoteOps != 1 {
		t.Fatalf("expected 1 remote event, got %d", remoteOps)
	}
}

func TestRemoteEventCarriesSender(t *testing.T) {
	e := NewEditor("")
	var got Source
	e.OnChange(func(ev ChangeEvent) { got = ev.Source })

	e.ApplyRemote(protocol.TextChange{Operation: protocol.OpInsert, Position: 0, Text: "x", UserID: "peer-1"})
	if !got.Remote || got.SenderID != "peer-1" {
		t.Fatalf("bad source tag: %+v", got)
	}
}

func TestSingleWriterConvergence(t *testing.T) {
	a := NewEditor("the quick fox")
	b := NewEditor("the quick fox")

	edits := []Change{
		{From: 9, Inserted: " brown", Origin: OriginInput},
		{From: 0, Removed: "the ", Origin: OriginDelete},
		{From: 15, Inserted: " jumps", Origin: OriginPaste},
		{From: 0, Removed: "quick", Inserted: "lazy", Origin: OriginOther},
	}
	for _, ch := range edits {
		b.ApplyRemote(a.Apply(ch))
	}

	if a.Content() != b.Content() {
		t.Fatalf("single-writer replicas diverged: %q vs %q", a.Content(), b.Content())
	}
}

func TestConcurrentEditsMayDiverge(t *testing.T) {
	// Two users edit the same buffer at once. Without a transform step
	// the offsets are applied as-is on both sides, so the replicas can
	// legitimately end up different. This documents the limitation.
	a := NewEditor("hello")
	b := NewEditor("hello")

	opA := a.Apply(Change{From: 0, Inserted: "X", Origin: OriginInput})
	opB := b.Apply(Change{From: 5, Inserted: "Y", Origin: OriginInput})

	// Cross-deliver. Each op carries the sender's full content, which
	// the last-writer-wins adoption makes the final state per side.
	a.ApplyRemote(protocol.TextChange{Operation: opB.Operation, Position: opB.Position, Text: opB.Text})
	b.ApplyRemote(protocol.TextChange{Operation: opA.Operation, Position: opA.Position, Text: opA.Text})

	if a.Content() == "hello" || b.Content() == "hello" {
		t.Fatal("both edits should have applied somewhere")
	}
	if a.Content() != b.Content() {
		t.Logf("replicas diverged as the protocol permits: %q vs %q", a.Content(), b.Content())
	}
}

func TestUnicodeOffsetsAreCharacters(t *testing.T) {
	a := NewEditor("héllo")
	b := NewEditor("héllo")

	op := a.Apply(Change{From: 5, Inserted: "!", Origin: OriginInput})
	if op.Position != 5 {
		t.Fatalf("offsets must count characters, got position %d", op.Position)
	}

	b.ApplyRemote(op)
	if b.Content() != "héllo!" {
		t.Fatalf("expected %q, got %q", "héllo!", b.Content())
	}
}
