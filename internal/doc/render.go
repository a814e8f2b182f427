package doc

import (
	"fmt"
	"html"
	"strings"
)

// ToHTML converts a document tree to HTML.
func ToHTML(n *Node) string {
	if n == nil {
		return ""
	}
	return renderHTML(n)
}

func renderHTML(n *Node) string {
	switch n.Type {
	case "doc":
		return renderChildrenHTML(n)
	case "paragraph":
		return fmt.Sprintf("<p>%s</p>\n", renderChildrenHTML(n))
	case "heading":
		level := headingLevel(n)
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderChildrenHTML(n), level)
	case "bulletList":
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderChildrenHTML(n))
	case "orderedList":
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderChildrenHTML(n))
	case "listItem":
		return fmt.Sprintf("<li>%s</li>\n", renderChildrenHTML(n))
	case "blockquote":
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderChildrenHTML(n))
	case "codeBlock":
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(plainChildren(n)))
	case "text":
		return renderTextWithMarks(n.Text, n.Marks)
	case "hardBreak":
		return "<br>"
	case "horizontalRule":
		return "<hr>\n"
	case "image":
		src, _ := n.Attrs["src"].(string)
		return fmt.Sprintf(`<img src="%s">`, html.EscapeString(src))
	default:
		// Unknown node type - render content if any
		return renderChildrenHTML(n)
	}
}

func renderChildrenHTML(n *Node) string {
	var b strings.Builder
	for _, child := range n.Content {
		b.WriteString(renderHTML(child))
	}
	return b.String()
}

func plainChildren(n *Node) string {
	var b strings.Builder
	for _, child := range n.Content {
		writePlain(child, &b)
	}
	return strings.TrimRight(b.String(), "\n")
}

func headingLevel(n *Node) int {
	if lvl, ok := n.Attrs["level"].(float64); ok && lvl >= 1 && lvl <= 6 {
		return int(lvl)
	}
	return 1
}

func renderTextWithMarks(text string, marks []Mark) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)

	// Apply marks from outside in
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			out = fmt.Sprintf("<strong>%s</strong>", out)
		case "italic":
			out = fmt.Sprintf("<em>%s</em>", out)
		case "code":
			out = fmt.Sprintf("<code>%s</code>", out)
		case "strike":
			out = fmt.Sprintf("<s>%s</s>", out)
		case "underline":
			out = fmt.Sprintf("<u>%s</u>", out)
		case "link":
			href := ""
			if v, ok := marks[i].Attrs["href"].(string); ok {
				href = v
			}
			out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), out)
		}
	}
	return out
}

// ToMarkdown converts a document tree to Markdown. Inline marks other than
// bold, italic and code are dropped.
func ToMarkdown(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	renderMarkdown(n, &b)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderMarkdown(n *Node, b *strings.Builder) {
	switch n.Type {
	case "doc":
		for _, child := range n.Content {
			renderMarkdown(child, b)
		}
	case "paragraph":
		b.WriteString(inlineMarkdown(n))
		b.WriteString("\n\n")
	case "heading":
		b.WriteString(strings.Repeat("#", headingLevel(n)))
		b.WriteString(" ")
		b.WriteString(inlineMarkdown(n))
		b.WriteString("\n\n")
	case "bulletList":
		for _, item := range n.Content {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(inlineMarkdown(item)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	case "orderedList":
		for i, item := range n.Content {
			fmt.Fprintf(b, "%d. %s\n", i+1, strings.TrimSpace(inlineMarkdown(item)))
		}
		b.WriteString("\n")
	case "blockquote":
		for _, line := range strings.Split(strings.TrimSpace(inlineMarkdown(n)), "\n") {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	case "codeBlock":
		b.WriteString("```\n")
		b.WriteString(plainChildren(n))
		b.WriteString("\n```\n\n")
	case "horizontalRule":
		b.WriteString("---\n\n")
	default:
		for _, child := range n.Content {
			renderMarkdown(child, b)
		}
	}
}

func inlineMarkdown(n *Node) string {
	var b strings.Builder
	collectInlineMarkdown(n, &b)
	return b.String()
}

func collectInlineMarkdown(n *Node, b *strings.Builder) {
	if n.Type == "text" {
		text := n.Text
		for _, mark := range n.Marks {
			switch mark.Type {
			case "bold":
				text = "**" + text + "**"
			case "italic":
				text = "*" + text + "*"
			case "code":
				text = "`" + text + "`"
			}
		}
		b.WriteString(text)
		return
	}
	if n.Type == "hardBreak" {
		b.WriteString("\n")
		return
	}
	for _, child := range n.Content {
		collectInlineMarkdown(child, b)
	}
}
