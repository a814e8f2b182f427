package history

import (
	"encoding/json"
	"testing"
)

func snapshot(title, text string) Content {
	raw, _ := json.Marshal(map[string]any{
		"type": "doc",
		"content": []any{
			map[string]any{"type": "paragraph", "content": []any{
				map[string]any{"type": "text", "text": text},
			}},
		},
	})
	return Content{Title: title, Doc: raw}
}

func TestEnsureDraftRepoCreatesBaseline(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureDraftRepo("draft-1", snapshot("Notes", "first"), "Ana"); err != nil {
		t.Fatalf("EnsureDraftRepo failed: %v", err)
	}

	items, err := svc.History("draft-1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 baseline commit, got %d", len(items))
	}
	if items[0].Author != "Ana" {
		t.Errorf("expected author Ana, got %q", items[0].Author)
	}
	if len(items[0].Hash) != 7 {
		t.Errorf("expected a short hash, got %q", items[0].Hash)
	}
}

func TestEnsureDraftRepoIsIdempotent(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureDraftRepo("draft-1", snapshot("Notes", "first"), "Ana"); err != nil {
		t.Fatalf("EnsureDraftRepo failed: %v", err)
	}
	if err := svc.EnsureDraftRepo("draft-1", snapshot("Other", "second"), "Ana"); err != nil {
		t.Fatalf("second EnsureDraftRepo failed: %v", err)
	}

	items, err := svc.History("draft-1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("repeated ensure must not add commits, got %d", len(items))
	}
}

func TestCommitAndHistory(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureDraftRepo("draft-1", snapshot("Notes", "first"), "Ana"); err != nil {
		t.Fatalf("EnsureDraftRepo failed: %v", err)
	}
	info, err := svc.CommitContent("draft-1", snapshot("Notes", "second"), "Ana", "Autosave")
	if err != nil {
		t.Fatalf("CommitContent failed: %v", err)
	}
	if info.Message != "Autosave" {
		t.Errorf("expected Autosave message, got %q", info.Message)
	}

	items, err := svc.History("draft-1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(items))
	}
	// Newest first.
	if items[0].Hash != info.Hash {
		t.Errorf("expected newest commit first, got %+v", items)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureDraftRepo("draft-1", snapshot("Notes", "v0"), "Ana"); err != nil {
		t.Fatalf("EnsureDraftRepo failed: %v", err)
	}
	for _, text := range []string{"v1", "v2", "v3"} {
		if _, err := svc.CommitContent("draft-1", snapshot("Notes", text), "Ana", "Autosave "+text); err != nil {
			t.Fatalf("CommitContent %s failed: %v", text, err)
		}
	}

	items, err := svc.History("draft-1", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected limit to cap history at 2, got %d", len(items))
	}
}

func TestGetContentByHash(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureDraftRepo("draft-1", snapshot("Notes", "first"), "Ana"); err != nil {
		t.Fatalf("EnsureDraftRepo failed: %v", err)
	}
	old, err := svc.CommitContent("draft-1", snapshot("Notes", "old text"), "Ana", "Autosave")
	if err != nil {
		t.Fatalf("CommitContent failed: %v", err)
	}
	if _, err := svc.CommitContent("draft-1", snapshot("Notes", "new text"), "Ana", "Autosave"); err != nil {
		t.Fatalf("CommitContent failed: %v", err)
	}

	content, err := svc.GetContentByHash("draft-1", old.Hash)
	if err != nil {
		t.Fatalf("GetContentByHash failed: %v", err)
	}
	if content.Title != "Notes" {
		t.Errorf("unexpected title %q", content.Title)
	}
	if want := string(snapshot("Notes", "old text").Doc); string(normalizeDoc(content.Doc)) != string(normalizeDoc(json.RawMessage(want))) {
		t.Errorf("expected the old snapshot, got %s", content.Doc)
	}
}

func TestGetContentByHashUnknownRevision(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureDraftRepo("draft-1", snapshot("Notes", "first"), "Ana"); err != nil {
		t.Fatalf("EnsureDraftRepo failed: %v", err)
	}
	if _, err := svc.GetContentByHash("draft-1", "fffffff"); err == nil {
		t.Error("expected an error for an unknown revision")
	}
}

func TestHistoryMissingRepo(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.History("never-created", 10); err == nil {
		t.Error("expected an error for a draft without a repo")
	}
}

func TestHasChanges(t *testing.T) {
	a := snapshot("Notes", "same")
	b := snapshot("Notes", "same")
	if HasChanges(a, b) {
		t.Error("identical snapshots must not report changes")
	}

	if !HasChanges(a, snapshot("Notes", "different")) {
		t.Error("expected body change to be detected")
	}
	if !HasChanges(a, snapshot("Renamed", "same")) {
		t.Error("expected title change to be detected")
	}

	// Formatting-only differences are not changes.
	compact := Content{Title: "Notes", Doc: json.RawMessage(`{"type":"doc"}`)}
	spaced := Content{Title: "Notes", Doc: json.RawMessage(`{ "type" : "doc" }`)}
	if HasChanges(compact, spaced) {
		t.Error("formatting-only difference must not report changes")
	}
}
