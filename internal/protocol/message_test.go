package protocol

import (
	"encoding/json"
	"testing"
)

func TestTextChangeValidate(t *testing.T) {
	cases := []struct {
		name    string
		tc      TextChange
		wantErr bool
	}{
		{"insert", TextChange{Operation: OpInsert, Position: 5, Text: " world"}, false},
		{"delete", TextChange{Operation: OpDelete, Position: 0, Length: 5}, false},
		{"replace", TextChange{Operation: OpReplace, Content: "all new"}, false},
		{"negative position", TextChange{Operation: OpInsert, Position: -1}, true},
		{"negative length", TextChange{Operation: OpDelete, Position: 0, Length: -2}, true},
		{"missing operation", TextChange{Position: 0}, true},
		{"unknown operation", TextChange{Operation: "append", Position: 0}, true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tc.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCursorPositionValidate(t *testing.T) {
	cp := CursorPosition{Position: 3, Selection: &Selection{From: 1, To: 4}}
	if err := cp.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cp = CursorPosition{Position: -1}
	if err := cp.Validate(); err == nil {
		t.Fatal("expected error for negative position")
	}

	cp = CursorPosition{Position: 0, Selection: &Selection{From: 5, To: 2}}
	if err := cp.Validate(); err == nil {
		t.Fatal("expected error for inverted selection")
	}
}

func TestEnvelopeDispatch(t *testing.T) {
	raw := []byte(`{"type":"text_change","operation":"insert","position":5,"text":" world"}`)

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeTextChange {
		t.Fatalf("expected %q, got %q", TypeTextChange, env.Type)
	}

	var tc TextChange
	if err := json.Unmarshal(raw, &tc); err != nil {
		t.Fatal(err)
	}
	if tc.Operation != OpInsert || tc.Position != 5 || tc.Text != " world" {
		t.Fatalf("bad decode: %+v", tc)
	}
}

func TestSnapshotWireFormat(t *testing.T) {
	data := NewDocumentContent("01ABC", "hello")

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["type"] != "document_content" {
		t.Fatalf("bad type: %v", decoded["type"])
	}
	if decoded["user_id"] != "01ABC" {
		t.Fatalf("bad user_id: %v", decoded["user_id"])
	}
	if decoded["content"] != "hello" {
		t.Fatalf("bad content: %v", decoded["content"])
	}
}

func TestPresenceWireFormat(t *testing.T) {
	var joined PresenceEvent
	if err := json.Unmarshal(NewUserJoined("u1"), &joined); err != nil {
		t.Fatal(err)
	}
	if joined.Type != TypeUserJoined || joined.UserID != "u1" {
		t.Fatalf("bad join notice: %+v", joined)
	}

	var left PresenceEvent
	if err := json.Unmarshal(NewUserLeft("u1"), &left); err != nil {
		t.Fatal(err)
	}
	if left.Type != TypeUserLeft || left.UserID != "u1" {
		t.Fatalf("bad leave notice: %+v", left)
	}
}

func TestEmptyContentStaysOnWire(t *testing.T) {
	// Deleting the whole buffer yields an empty full-content field; it
	// must survive encoding so the hub adopts the emptied document.
	data, err := json.Marshal(TextChange{Type: TypeTextChange, Operation: OpDelete, Position: 0, Length: 5})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["content"]; !ok {
		t.Fatal("empty content must not be dropped from the wire")
	}
}

func TestOptionalFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(CursorPosition{Type: TypeCursorPosition, Position: 7})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	json.Unmarshal(data, &decoded)
	if _, ok := decoded["selection"]; ok {
		t.Fatal("empty selection should be omitted")
	}
	if _, ok := decoded["user_id"]; ok {
		t.Fatal("empty user_id should be omitted")
	}
}
