package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"scribe/api/internal/doc"
)

// ErrTransform wraps serialize/parse failures during Apply. The caller's
// document is never mutated when Apply fails; the suggestion stays pending.
var ErrTransform = fmt.Errorf("transform failed")

// Apply performs the content transformation for an accepted suggestion:
// serialize the document, replace every occurrence of original with
// suggested, parse the result back into a tree.
//
// The replacement is global on purpose: a suggestion targets a phrase, not
// a specific occurrence, so duplicates all change even though only the
// first was highlighted. The replacement is literal; original is never
// interpreted as a pattern.
func Apply(n *doc.Node, original, suggested string) (*doc.Node, error) {
	if original == "" {
		return nil, fmt.Errorf("%w: empty original text", ErrTransform)
	}

	serialized, err := doc.Serialize(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransform, err)
	}

	// The canonical form is JSON, so the needle has to match the encoded
	// text, not the raw text (quotes, backslashes, control characters).
	replaced := strings.ReplaceAll(serialized, jsonFragment(original), jsonFragment(suggested))

	next, err := doc.Parse(replaced)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransform, err)
	}
	return next, nil
}

// jsonFragment returns s as it appears inside a JSON string value, without
// the surrounding quotes.
func jsonFragment(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw[1 : len(raw)-1])
}
