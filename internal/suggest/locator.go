package suggest

import (
	"strings"
	"unicode/utf8"

	"scribe/api/internal/doc"
)

// Span is a located occurrence of a suggestion's original text inside the
// rendered document: the text run it anchors to plus character offsets
// within that run. Spans are derived values; they are recomputed on every
// pass and never stored.
type Span struct {
	SuggestionID string
	Run          doc.TextRun
	Start        int
	End          int
}

// Locate matches each pending suggestion against the rendered text runs in
// document order and returns the resulting spans.
//
// Matching is exact substring, case sensitive, no normalization. The first
// occurrence in document order wins when the original appears more than
// once. At most one span is produced per suggestion, and at most one
// suggestion is matched per run (first in suggestion order), which keeps
// highlight geometry from overlapping. An original that spans a boundary
// between two runs is never located; that is an accepted limitation, not an
// error.
//
// Offsets are in characters (runes), matching how the editing surface
// addresses positions inside a text node.
func Locate(runs []doc.TextRun, pending []Suggestion) []Span {
	var spans []Span
	located := make(map[string]bool, len(pending))

	for _, run := range runs {
		for _, sug := range pending {
			if located[sug.ID] || sug.Original == "" {
				continue
			}
			idx := strings.Index(run.Text, sug.Original)
			if idx < 0 {
				continue
			}
			start := utf8.RuneCountInString(run.Text[:idx])
			spans = append(spans, Span{
				SuggestionID: sug.ID,
				Run:          run,
				Start:        start,
				End:          start + utf8.RuneCountInString(sug.Original),
			})
			located[sug.ID] = true
			break // one highlight per run
		}
	}
	return spans
}

// LocateOne finds the span for a single suggestion, or reports not found.
// Not found is a normal outcome: the suggestion simply has no visual anchor
// on this pass.
func LocateOne(runs []doc.TextRun, sug Suggestion) (Span, bool) {
	spans := Locate(runs, []Suggestion{sug})
	if len(spans) == 0 {
		return Span{}, false
	}
	return spans[0], true
}
