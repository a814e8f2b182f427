package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scribe/api/internal/suggest"
)

// newAPIStub serves the draft and suggestion routes with the exact response
// shapes the API writes: bare objects for single resources, an envelope for
// list endpoints.
func newAPIStub(t *testing.T) (*httptest.Server, *apiStubState) {
	t.Helper()
	state := &apiStubState{
		draft: map[string]any{
			"id":    "d1",
			"title": "Notes",
			"content": map[string]any{
				"type": "doc",
				"content": []any{
					map[string]any{"type": "paragraph", "content": []any{
						map[string]any{"type": "text", "text": "The cat sat."},
					}},
				},
			},
			"updated_at": "2026-08-29T10:00:00Z",
		},
		suggestions: []suggest.Suggestion{
			{ID: "s1", Original: "cat", Suggested: "dog", Status: suggest.StatusPending},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/drafts/d1", func(w http.ResponseWriter, r *http.Request) {
		state.lastAuth = r.Header.Get("Authorization")
		switch r.Method {
		case http.MethodGet:
			writeStubJSON(w, http.StatusOK, state.draft)
		case http.MethodPut:
			var body struct {
				Title   string          `json:"title"`
				Content json.RawMessage `json:"content"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			state.savedTitle = body.Title
			state.draft["updated_at"] = "2026-08-29T10:05:00Z"
			writeStubJSON(w, http.StatusOK, state.draft)
		}
	})
	mux.HandleFunc("/api/drafts/d1/suggestions", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusOK, map[string]any{"suggestions": state.suggestions})
	})
	mux.HandleFunc("/api/drafts/d1/suggestions/s1", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status suggest.Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		state.setStatus = body.Status
		sug := state.suggestions[0]
		sug.Status = body.Status
		writeStubJSON(w, http.StatusOK, sug)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusNotFound, map[string]any{"code": "NOT_FOUND", "error": "Not found"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, state
}

type apiStubState struct {
	draft       map[string]any
	suggestions []suggest.Suggestion
	savedTitle  string
	setStatus   suggest.Status
	lastAuth    string
}

func writeStubJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestClientFetchDraft(t *testing.T) {
	server, state := newAPIStub(t)
	c := NewClient(server.URL, "scribe_test")

	draft, err := c.FetchDraft(context.Background(), "d1")
	if err != nil {
		t.Fatalf("FetchDraft failed: %v", err)
	}
	if draft.ID != "d1" || draft.Title != "Notes" || draft.Revision != "2026-08-29T10:00:00Z" {
		t.Errorf("unexpected draft %+v", draft)
	}
	if draft.Content == nil || draft.Content.Type != "doc" {
		t.Errorf("expected a parsed document tree, got %+v", draft.Content)
	}
	if state.lastAuth != "Bearer scribe_test" {
		t.Errorf("expected bearer auth, got %q", state.lastAuth)
	}
}

func TestClientSaveDraftReturnsRevision(t *testing.T) {
	server, state := newAPIStub(t)
	c := NewClient(server.URL, "scribe_test")

	revision, err := c.SaveDraft(context.Background(), "d1", "Renamed", textDoc("edited"))
	if err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	if revision != "2026-08-29T10:05:00Z" {
		t.Errorf("expected the bumped marker, got %q", revision)
	}
	if state.savedTitle != "Renamed" {
		t.Errorf("expected title sent, got %q", state.savedTitle)
	}
}

func TestClientFetchSuggestionsUnwrapsEnvelope(t *testing.T) {
	server, _ := newAPIStub(t)
	c := NewClient(server.URL, "scribe_test")

	items, err := c.FetchSuggestions(context.Background(), "d1")
	if err != nil {
		t.Fatalf("FetchSuggestions failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "s1" || items[0].Status != suggest.StatusPending {
		t.Errorf("unexpected suggestions %+v", items)
	}
}

func TestClientSetSuggestionStatus(t *testing.T) {
	server, state := newAPIStub(t)
	c := NewClient(server.URL, "scribe_test")

	sug, err := c.SetSuggestionStatus(context.Background(), "d1", "s1", suggest.StatusAccepted)
	if err != nil {
		t.Fatalf("SetSuggestionStatus failed: %v", err)
	}
	if sug.Status != suggest.StatusAccepted {
		t.Errorf("expected accepted, got %s", sug.Status)
	}
	if state.setStatus != suggest.StatusAccepted {
		t.Errorf("expected accepted sent, got %s", state.setStatus)
	}
}

func TestClientErrorStatus(t *testing.T) {
	server, _ := newAPIStub(t)
	c := NewClient(server.URL, "scribe_test")

	_, err := c.FetchDraft(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected the status in the error, got %v", err)
	}
}

func TestSessionOpensOverHTTP(t *testing.T) {
	server, _ := newAPIStub(t)
	c := NewClient(server.URL, "scribe_test")

	s := New(Config{DraftID: "d1", Docs: c, Suggestions: c})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open over HTTP failed: %v", err)
	}
	if s.Store().PendingCount() != 1 {
		t.Errorf("expected the remote suggestion loaded, got %d pending", s.Store().PendingCount())
	}
	if spans := s.Spans(); len(spans) != 1 || spans[0].SuggestionID != "s1" {
		t.Errorf("expected the suggestion located in the fetched draft, got %+v", spans)
	}
}
