// Package doc models the editor's ProseMirror-style document tree. The rest
// of the system treats a document as an opaque value with two operations:
// Serialize to a canonical string and Parse back. Structural edits never
// happen here; content mutation goes through the serialize/replace/parse
// round trip in the suggest package.
package doc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is a node in the document tree. Text nodes carry Text and Marks;
// block nodes carry Content.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Empty returns a document with a single empty paragraph, the editor's
// initial state.
func Empty() *Node {
	return &Node{
		Type:    "doc",
		Content: []*Node{{Type: "paragraph"}},
	}
}

// Serialize renders the tree in its canonical string form (compact JSON).
func Serialize(n *Node) (string, error) {
	if n == nil {
		return "", fmt.Errorf("serialize: nil document")
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return string(raw), nil
}

// Parse reads a canonical string form back into a tree.
func Parse(s string) (*Node, error) {
	var n Node
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if n.Type == "" {
		return nil, fmt.Errorf("parse document: missing root type")
	}
	return &n, nil
}

// TextRun is one rendered text node, in document order. Index is the run's
// position in that order and is stable for an unchanged tree.
type TextRun struct {
	Index int
	Text  string
	Node  *Node
}

// TextRuns walks the tree depth-first and returns every text node in
// document order. This is the traversal the span locator matches against.
func TextRuns(n *Node) []TextRun {
	var runs []TextRun
	collectRuns(n, &runs)
	return runs
}

func collectRuns(n *Node, runs *[]TextRun) {
	if n == nil {
		return
	}
	if n.Type == "text" {
		*runs = append(*runs, TextRun{Index: len(*runs), Text: n.Text, Node: n})
		return
	}
	for _, child := range n.Content {
		collectRuns(child, runs)
	}
}

// PlainText flattens the document to plain text. Block nodes are separated
// by newlines; inline runs join without separators.
func PlainText(n *Node) string {
	var b strings.Builder
	writePlain(n, &b)
	return strings.TrimRight(b.String(), "\n")
}

func writePlain(n *Node, b *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == "text" {
		b.WriteString(n.Text)
		return
	}
	for _, child := range n.Content {
		writePlain(child, b)
	}
	switch n.Type {
	case "paragraph", "heading", "codeBlock", "blockquote", "listItem":
		b.WriteString("\n")
	case "hardBreak":
		b.WriteString("\n")
	}
}
