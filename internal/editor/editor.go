// Package editor runs a document editing session: it owns the local draft
// buffer and suggestion store, debounces autosaves, polls storage for
// changes made by the external author, and dispatches accept/reject
// actions. All state belongs to one session; nothing is shared across open
// drafts.
package editor

import (
	"context"
	"time"

	"scribe/api/internal/doc"
	"scribe/api/internal/suggest"
)

// Severity classifies a notification for presentation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// not block.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string, Severity) {}

// Draft is the session's view of a persisted draft. Revision is the opaque
// marker storage associates with the draft; it is compared only for
// inequality, never ordered.
type Draft struct {
	ID       string
	Title    string
	Content  *doc.Node
	Revision string
}

// DocumentStorage is the draft persistence collaborator.
type DocumentStorage interface {
	FetchDraft(ctx context.Context, id string) (Draft, error)
	// SaveDraft persists title and content and returns the new revision
	// marker.
	SaveDraft(ctx context.Context, id, title string, content *doc.Node) (string, error)
}

// SuggestionStorage is the suggestion persistence collaborator.
type SuggestionStorage interface {
	FetchSuggestions(ctx context.Context, draftID string) ([]suggest.Suggestion, error)
	SetSuggestionStatus(ctx context.Context, draftID, suggestionID string, status suggest.Status) (suggest.Suggestion, error)
}

// Config configures a session. Zero intervals fall back to the defaults
// used by the web client (5s poll, 1.5s save debounce).
type Config struct {
	DraftID      string
	Docs         DocumentStorage
	Suggestions  SuggestionStorage
	Notify       Notifier
	PollInterval time.Duration
	SaveDebounce time.Duration
}

const (
	defaultPollInterval = 5 * time.Second
	defaultSaveDebounce = 1500 * time.Millisecond
)
