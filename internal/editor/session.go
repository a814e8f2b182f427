package editor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"scribe/api/internal/doc"
	"scribe/api/internal/suggest"
)

// Session is one open draft. Create with New, load with Open, then Start
// the background loop. Close cancels the loop and discards the results of
// any request still in flight.
type Session struct {
	cfg        Config
	store      *suggest.Store
	controller *suggest.Controller

	mu       sync.Mutex
	title    string
	content  *doc.Node
	revision string // last known revision marker; empty until first observation
	dirty    bool
	saving   bool
	saveSeq  uint64
	saveDone uint64 // highest seq whose response has been applied

	saveTimer *time.Timer
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
}

func New(cfg Config) *Session {
	if cfg.Notify == nil {
		cfg.Notify = NopNotifier{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = defaultSaveDebounce
	}
	s := &Session{cfg: cfg, store: suggest.NewStore()}
	s.controller = suggest.NewController(s)
	return s
}

// Store exposes the session's suggestion set.
func (s *Session) Store() *suggest.Store { return s.store }

// Controller exposes the highlight interaction state machine, wired to this
// session's accept/reject.
func (s *Session) Controller() *suggest.Controller { return s.controller }

// Open fetches the draft and its suggestions and establishes the revision
// baseline. The first observation never raises a change notification.
func (s *Session) Open(ctx context.Context) error {
	draft, err := s.cfg.Docs.FetchDraft(ctx, s.cfg.DraftID)
	if err != nil {
		return fmt.Errorf("open draft: %w", err)
	}
	items, err := s.cfg.Suggestions.FetchSuggestions(ctx, s.cfg.DraftID)
	if err != nil {
		return fmt.Errorf("open draft suggestions: %w", err)
	}

	s.mu.Lock()
	s.title = draft.Title
	s.content = draft.Content
	s.revision = draft.Revision
	s.dirty = false
	s.mu.Unlock()

	s.store.Replace(items)
	return nil
}

// Start launches the synchronization loop. Call Close to stop it.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.ctx != nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.ctx
	s.mu.Unlock()

	go s.run(loopCtx)
}

// Close stops the loop and timers. In-flight requests finish on their own
// but their results are no longer applied.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	cancel := s.cancel
	timer := s.saveTimer
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick is one pass of the synchronization loop. Failures are logged and
// swallowed; the loop must keep ticking through transient errors.
func (s *Session) tick(ctx context.Context) {
	draft, err := s.cfg.Docs.FetchDraft(ctx, s.cfg.DraftID)
	if err != nil {
		log.Printf("editor: poll draft %s: %v", s.cfg.DraftID, err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	last := s.revision
	s.mu.Unlock()

	if last != "" && draft.Revision != last {
		// External change. Never replace the open buffer here; the user
		// reloads explicitly so unsaved local edits survive.
		s.cfg.Notify.Notify("Document updated externally. Reload to load the latest version.", SeverityInfo)
		s.refreshSuggestions(ctx)
	}

	s.mu.Lock()
	if !s.closed {
		s.revision = draft.Revision
	}
	s.mu.Unlock()
}

func (s *Session) refreshSuggestions(ctx context.Context) {
	items, err := s.cfg.Suggestions.FetchSuggestions(ctx, s.cfg.DraftID)
	if err != nil {
		log.Printf("editor: poll suggestions %s: %v", s.cfg.DraftID, err)
		return
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	// Wholesale replace; any unpersisted local resolution is superseded.
	s.store.Replace(items)
	if pending := s.store.PendingCount(); pending > 0 {
		s.cfg.Notify.Notify(fmt.Sprintf("%d pending suggestion(s)", pending), SeverityInfo)
	}
}

// Reload discards the local buffer in favor of the persisted draft. This is
// the explicit, user-triggered counterpart of the change notification.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.Open(ctx); err != nil {
		s.cfg.Notify.Notify("Failed to reload", SeverityWarning)
		return err
	}
	s.cfg.Notify.Notify("Reloaded", SeveritySuccess)
	return nil
}

// UpdateContent replaces the local content buffer and restarts the autosave
// debounce window.
func (s *Session) UpdateContent(n *doc.Node) {
	s.mu.Lock()
	s.content = n
	s.dirty = true
	s.mu.Unlock()
	s.scheduleSave()
}

// UpdateTitle replaces the local title and restarts the autosave debounce
// window.
func (s *Session) UpdateTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.dirty = true
	s.mu.Unlock()
	s.scheduleSave()
}

func (s *Session) scheduleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.saveTimer == nil {
		s.saveTimer = time.AfterFunc(s.cfg.SaveDebounce, func() {
			s.autosave()
		})
		return
	}
	// Restarting the timer coalesces rapid mutations into one save carrying
	// the most recent buffer.
	s.saveTimer.Reset(s.cfg.SaveDebounce)
}

func (s *Session) autosave() {
	s.mu.Lock()
	ctx := s.ctx
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.save(ctx); err != nil {
		// Not retried; the next mutation's debounce cycle tries again.
		log.Printf("editor: autosave draft %s: %v", s.cfg.DraftID, err)
	}
}

// SaveNow saves immediately, bypassing the debounce window. Unlike
// background autosave, failures surface through the notification sink.
func (s *Session) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.dirty = true
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		s.cfg.Notify.Notify("Save failed", SeverityWarning)
		return err
	}
	return nil
}

func (s *Session) save(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty || s.content == nil {
		s.mu.Unlock()
		return nil
	}
	s.dirty = false
	s.saving = true
	s.saveSeq++
	seq := s.saveSeq
	title := s.title
	content := s.content
	s.mu.Unlock()

	revision, err := s.cfg.Docs.SaveDraft(ctx, s.cfg.DraftID, title, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.saveSeq {
		s.saving = false
	}
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	// Saves may complete out of order; only the most recently completed
	// response updates the marker, so our own save is not later mistaken
	// for an external change.
	if seq > s.saveDone && !s.closed {
		s.saveDone = seq
		s.revision = revision
	}
	return nil
}

// Saving reports whether a save is in flight (the "saving" indicator).
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Snapshot returns a copy of the local draft buffer.
func (s *Session) Snapshot() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Draft{ID: s.cfg.DraftID, Title: s.title, Content: s.content, Revision: s.revision}
}

// Spans locates every pending suggestion against the current buffer.
func (s *Session) Spans() []suggest.Span {
	s.mu.Lock()
	content := s.content
	s.mu.Unlock()
	if content == nil {
		return nil
	}
	return suggest.Locate(doc.TextRuns(content), s.store.Pending())
}

// Accept applies a pending suggestion: transform the local buffer, persist
// the status, mark it accepted. A failed transform leaves both the buffer
// and the suggestion untouched.
func (s *Session) Accept(ctx context.Context, suggestionID string) error {
	sug, ok := s.store.Get(suggestionID)
	if !ok {
		return fmt.Errorf("suggestion %s not found", suggestionID)
	}
	if sug.Status != suggest.StatusPending {
		return fmt.Errorf("suggestion %s already %s", suggestionID, sug.Status)
	}

	s.mu.Lock()
	content := s.content
	s.mu.Unlock()
	if content == nil {
		return fmt.Errorf("no document open")
	}

	next, err := suggest.Apply(content, sug.Original, sug.Suggested)
	if err != nil {
		return err
	}
	s.UpdateContent(next)

	s.persistStatus(ctx, suggestionID, suggest.StatusAccepted)
	if err := s.store.SetStatus(suggestionID, suggest.StatusAccepted); err != nil {
		return err
	}
	s.cfg.Notify.Notify("Suggestion applied", SeveritySuccess)
	return nil
}

// Reject dismisses a pending suggestion without touching the buffer.
func (s *Session) Reject(ctx context.Context, suggestionID string) error {
	sug, ok := s.store.Get(suggestionID)
	if !ok {
		return fmt.Errorf("suggestion %s not found", suggestionID)
	}
	if sug.Status != suggest.StatusPending {
		return fmt.Errorf("suggestion %s already %s", suggestionID, sug.Status)
	}

	s.persistStatus(ctx, suggestionID, suggest.StatusRejected)
	if err := s.store.SetStatus(suggestionID, suggest.StatusRejected); err != nil {
		return err
	}
	s.cfg.Notify.Notify("Suggestion dismissed", SeverityInfo)
	return nil
}

func (s *Session) persistStatus(ctx context.Context, suggestionID string, status suggest.Status) {
	if _, err := s.cfg.Suggestions.SetSuggestionStatus(ctx, s.cfg.DraftID, suggestionID, status); err != nil {
		log.Printf("editor: persist suggestion %s status: %v", suggestionID, err)
		s.cfg.Notify.Notify("Could not sync suggestion status", SeverityWarning)
	}
}
