package suggest

import (
	"testing"
	"time"
)

func TestStoreReplaceOrdersByCreatedAt(t *testing.T) {
	store := NewStore()
	base := time.Now()

	store.Replace([]Suggestion{
		{ID: "b", Original: "x", Suggested: "y", Status: StatusPending, CreatedAt: base.Add(2 * time.Second)},
		{ID: "a", Original: "x", Suggested: "y", Status: StatusPending, CreatedAt: base},
		{ID: "c", Original: "x", Suggested: "y", Status: StatusPending, CreatedAt: base.Add(time.Second)},
	})

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(all))
	}
	wantOrder := []string{"a", "c", "b"}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}
}

func TestStoreReplaceIsWholesale(t *testing.T) {
	store := NewStore()
	store.Replace([]Suggestion{
		{ID: "old", Original: "x", Suggested: "y", Status: StatusPending},
	})
	store.Replace([]Suggestion{
		{ID: "new", Original: "x", Suggested: "y", Status: StatusPending},
	})

	if _, ok := store.Get("old"); ok {
		t.Error("expected old suggestion to be gone after Replace")
	}
	if _, ok := store.Get("new"); !ok {
		t.Error("expected new suggestion to be present after Replace")
	}
}

func TestStorePendingFiltersTerminal(t *testing.T) {
	store := NewStore()
	store.Replace([]Suggestion{
		{ID: "p", Original: "x", Suggested: "y", Status: StatusPending},
		{ID: "a", Original: "x", Suggested: "y", Status: StatusAccepted},
		{ID: "r", Original: "x", Suggested: "y", Status: StatusRejected},
	})

	pending := store.Pending()
	if len(pending) != 1 || pending[0].ID != "p" {
		t.Errorf("expected only pending suggestion p, got %+v", pending)
	}
	if store.PendingCount() != 1 {
		t.Errorf("expected PendingCount 1, got %d", store.PendingCount())
	}
}

func TestSetStatusTerminalIsFinal(t *testing.T) {
	store := NewStore()
	store.Replace([]Suggestion{
		{ID: "s1", Original: "x", Suggested: "y", Status: StatusPending},
	})

	if err := store.SetStatus("s1", StatusAccepted); err != nil {
		t.Fatalf("accepting a pending suggestion failed: %v", err)
	}

	// Terminal status never transitions again, in any direction.
	if err := store.SetStatus("s1", StatusRejected); err == nil {
		t.Error("expected error moving accepted -> rejected, got nil")
	}
	if err := store.SetStatus("s1", StatusPending); err == nil {
		t.Error("expected error moving accepted -> pending, got nil")
	}

	sug, _ := store.Get("s1")
	if sug.Status != StatusAccepted {
		t.Errorf("expected status to stay accepted, got %s", sug.Status)
	}
}

func TestSetStatusUnknownSuggestion(t *testing.T) {
	store := NewStore()
	if err := store.SetStatus("missing", StatusAccepted); err == nil {
		t.Error("expected error for unknown suggestion, got nil")
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusPending.Valid() || !StatusAccepted.Valid() || !StatusRejected.Valid() {
		t.Error("expected all defined statuses to be valid")
	}
	if Status("bogus").Valid() {
		t.Error("expected bogus status to be invalid")
	}
	if StatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if !StatusAccepted.Terminal() || !StatusRejected.Terminal() {
		t.Error("accepted and rejected must be terminal")
	}
}
