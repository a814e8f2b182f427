package suggest

import (
	"errors"
	"testing"

	"scribe/api/internal/doc"
)

func paragraphDoc(texts ...string) *doc.Node {
	content := make([]*doc.Node, len(texts))
	for i, text := range texts {
		content[i] = &doc.Node{Type: "paragraph", Content: []*doc.Node{
			{Type: "text", Text: text},
		}}
	}
	return &doc.Node{Type: "doc", Content: content}
}

func TestApplyReplacesText(t *testing.T) {
	n := paragraphDoc("The cat sat.")

	next, err := Apply(n, "The cat sat.", "The dog sat.")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	runs := doc.TextRuns(next)
	if len(runs) != 1 || runs[0].Text != "The dog sat." {
		t.Errorf("expected replaced text, got %+v", runs)
	}
}

func TestApplyReplacesAllOccurrences(t *testing.T) {
	n := paragraphDoc("the cat sat", "again the cat sat")

	next, err := Apply(n, "the cat", "the dog")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	runs := doc.TextRuns(next)
	if runs[0].Text != "the dog sat" {
		t.Errorf("first occurrence not replaced: %q", runs[0].Text)
	}
	if runs[1].Text != "again the dog sat" {
		t.Errorf("second occurrence not replaced: %q", runs[1].Text)
	}
}

func TestApplyAbsentTextIsNoop(t *testing.T) {
	n := paragraphDoc("The cat sat.")

	next, err := Apply(n, "elephant", "mouse")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	runs := doc.TextRuns(next)
	if runs[0].Text != "The cat sat." {
		t.Errorf("expected unchanged text, got %q", runs[0].Text)
	}
}

func TestApplyHandlesJSONSpecialCharacters(t *testing.T) {
	n := paragraphDoc(`He said "hello" and left.`)

	next, err := Apply(n, `"hello"`, `"goodbye"`)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	runs := doc.TextRuns(next)
	if runs[0].Text != `He said "goodbye" and left.` {
		t.Errorf("quoted text not replaced: %q", runs[0].Text)
	}
}

func TestApplyRegexMetacharactersAreLiteral(t *testing.T) {
	n := paragraphDoc("cost is $5.00 (net)")

	next, err := Apply(n, "$5.00 (net)", "$6.00 (gross)")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	runs := doc.TextRuns(next)
	if runs[0].Text != "cost is $6.00 (gross)" {
		t.Errorf("metacharacters not treated literally: %q", runs[0].Text)
	}
}

func TestApplyEmptyOriginalFails(t *testing.T) {
	n := paragraphDoc("anything")

	_, err := Apply(n, "", "new")
	if !errors.Is(err, ErrTransform) {
		t.Errorf("expected ErrTransform for empty original, got %v", err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	n := paragraphDoc("The cat sat.")

	if _, err := Apply(n, "cat", "dog"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	runs := doc.TextRuns(n)
	if runs[0].Text != "The cat sat." {
		t.Errorf("input document was mutated: %q", runs[0].Text)
	}
}

func TestApplyPreservesStructure(t *testing.T) {
	n := &doc.Node{Type: "doc", Content: []*doc.Node{
		{Type: "heading", Attrs: map[string]any{"level": float64(1)}, Content: []*doc.Node{
			{Type: "text", Text: "Title"},
		}},
		{Type: "paragraph", Content: []*doc.Node{
			{Type: "text", Text: "old word", Marks: []doc.Mark{{Type: "bold"}}},
		}},
	}}

	next, err := Apply(n, "old word", "new word")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if next.Content[0].Type != "heading" {
		t.Errorf("heading lost: %+v", next.Content[0])
	}
	text := next.Content[1].Content[0]
	if text.Text != "new word" {
		t.Errorf("expected replaced text, got %q", text.Text)
	}
	if len(text.Marks) != 1 || text.Marks[0].Type != "bold" {
		t.Errorf("marks lost in transform: %+v", text.Marks)
	}
}
