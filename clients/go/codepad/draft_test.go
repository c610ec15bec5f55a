package codepad

import (
	"path/filepath"
	"testing"
)

func openTestDrafts(t *testing.T) *DraftStore {
	t.Helper()
	d, err := OpenDraftStore(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDraftRoundTrip(t *testing.T) {
	d := openTestDrafts(t)

	if err := d.Save("doc-1", "work in progress"); err != nil {
		t.Fatal(err)
	}

	content, ok, err := d.Load("doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || content != "work in progress" {
		t.Fatalf("bad draft: ok=%v content=%q", ok, content)
	}
}

func TestDraftMissing(t *testing.T) {
	d := openTestDrafts(t)

	_, ok, err := d.Load("never-saved")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing draft should report ok=false")
	}
}

func TestDraftOverwriteAndDelete(t *testing.T) {
	d := openTestDrafts(t)

	d.Save("doc-1", "v1")
	d.Save("doc-1", "v2")

	content, _, _ := d.Load("doc-1")
	if content != "v2" {
		t.Fatalf("expected latest draft, got %q", content)
	}

	if err := d.Delete("doc-1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := d.Load("doc-1"); ok {
		t.Fatal("draft should be gone after delete")
	}
}
