package suggest

import (
	"context"
	"sync"
)

// Actions is what the controller dispatches accept/reject to; the editor
// session implements it.
type Actions interface {
	Accept(ctx context.Context, suggestionID string) error
	Reject(ctx context.Context, suggestionID string) error
}

// Controller owns the active-suggestion selection: which highlight is
// focused and where its popover anchors. At most one popover is open at a
// time; opening a new one closes the previous, and accept, reject, or a
// click outside all return to idle.
type Controller struct {
	mu      sync.Mutex
	actions Actions

	activeID string
	anchor   Rect
}

func NewController(actions Actions) *Controller {
	return &Controller{actions: actions}
}

// Open focuses the given suggestion, anchoring its popover at rect.
func (c *Controller) Open(suggestionID string, anchor Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = suggestionID
	c.anchor = anchor
}

// Close returns to idle without resolving anything (outside click).
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = ""
	c.anchor = Rect{}
}

// Active returns the focused suggestion id and popover anchor, if any.
func (c *Controller) Active() (string, Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == "" {
		return "", Rect{}, false
	}
	return c.activeID, c.anchor, true
}

// Accept resolves the active suggestion as accepted and closes the
// popover. On failure the popover still closes but the suggestion remains
// pending; the error is the caller's to surface.
func (c *Controller) Accept(ctx context.Context) error {
	id, ok := c.take()
	if !ok {
		return nil
	}
	return c.actions.Accept(ctx, id)
}

// Reject resolves the active suggestion as rejected and closes the popover.
func (c *Controller) Reject(ctx context.Context) error {
	id, ok := c.take()
	if !ok {
		return nil
	}
	return c.actions.Reject(ctx, id)
}

func (c *Controller) take() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.activeID
	c.activeID = ""
	c.anchor = Rect{}
	return id, id != ""
}
