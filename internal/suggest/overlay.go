package suggest

import "scribe/api/internal/doc"

// Rect is a rectangle relative to the editing surface's offset origin.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Overlay is the on-screen highlight for one located span. Overlays render
// absolutely positioned over the surface, never inside its content tree, so
// the surface's internal state and undo stack stay untouched.
type Overlay struct {
	SuggestionID string
	Rect         Rect
}

// Measurer exposes text-range geometry from the live rendered surface. The
// returned rect is in viewport coordinates; ok is false when the range
// cannot be measured (run no longer rendered).
type Measurer interface {
	RangeRect(run doc.TextRun, start, end int) (Rect, bool)
}

// Viewport describes the surface's offset origin and internal scroll
// position at measurement time.
type Viewport struct {
	OriginTop  float64
	OriginLeft float64
	ScrollTop  float64
	ScrollLeft float64
}

// Position computes surface-relative overlay rectangles for the given
// spans. It is pure and side-effect free, so callers may run it on every
// change signal; recomputing with unchanged inputs yields identical output.
// Spans whose geometry cannot be measured are skipped.
func Position(spans []Span, m Measurer, vp Viewport) []Overlay {
	var overlays []Overlay
	for _, span := range spans {
		rect, ok := m.RangeRect(span.Run, span.Start, span.End)
		if !ok {
			continue
		}
		overlays = append(overlays, Overlay{
			SuggestionID: span.SuggestionID,
			Rect: Rect{
				Top:    rect.Top - vp.OriginTop + vp.ScrollTop,
				Left:   rect.Left - vp.OriginLeft + vp.ScrollLeft,
				Width:  rect.Width,
				Height: rect.Height,
			},
		})
	}
	return overlays
}
