// Package suggest implements the suggestion engine: the in-memory
// suggestion set for an open draft, locating suggestion text inside the
// rendered document, positioning highlight overlays, the accept/reject
// interaction state machine, and the content transformation that applies an
// accepted suggestion.
package suggest

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status is a suggestion's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// Terminal reports whether a suggestion in this status is resolved.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Suggestion is a proposed literal text replacement. Original is matched
// against the current document at render time; it is never re-anchored.
type Suggestion struct {
	ID        string    `json:"id"`
	Original  string    `json:"original"`
	Suggested string    `json:"suggested"`
	Reason    string    `json:"reason,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store holds the suggestion set for the currently open draft. It is
// replaced wholesale when the synchronization loop detects external changes
// and mutated in place (status only) by accept/reject.
type Store struct {
	mu    sync.Mutex
	items []Suggestion
	byID  map[string]int
}

func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Replace swaps the entire suggestion set. No merge with the previous
// contents is attempted; the fetched set wins.
func (s *Store) Replace(items []Suggestion) {
	sorted := make([]Suggestion, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = sorted
	s.byID = make(map[string]int, len(sorted))
	for i, item := range sorted {
		s.byID[item.ID] = i
	}
}

// All returns a snapshot of every suggestion in display order.
func (s *Store) All() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Suggestion, len(s.items))
	copy(out, s.items)
	return out
}

// Pending returns a snapshot of unresolved suggestions in display order.
// Only these participate in span location.
func (s *Store) Pending() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Suggestion
	for _, item := range s.items {
		if item.Status == StatusPending {
			out = append(out, item)
		}
	}
	return out
}

// Get looks a suggestion up by id.
func (s *Store) Get(id string) (Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return Suggestion{}, false
	}
	return s.items[i], true
}

// SetStatus moves a suggestion to a new status. Accepted and rejected are
// terminal: once resolved, a suggestion never returns to pending.
func (s *Store) SetStatus(id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("suggestion %s not found", id)
	}
	current := s.items[i].Status
	if current.Terminal() && status != current {
		return fmt.Errorf("suggestion %s already %s", id, current)
	}
	s.items[i].Status = status
	return nil
}

// Len reports the total number of suggestions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// PendingCount reports the number of unresolved suggestions.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		if item.Status == StatusPending {
			n++
		}
	}
	return n
}
