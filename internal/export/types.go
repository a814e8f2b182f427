// Package export renders drafts to HTML, Markdown, and PDF.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// Valid reports whether f is a supported export format.
func (f Format) Valid() bool {
	switch f {
	case FormatHTML, FormatMarkdown, FormatPDF:
		return true
	}
	return false
}

// Request contains parameters for an export operation
type Request struct {
	DraftID string
	UserID  string
	Format  Format
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// DraftInfo holds draft metadata for export rendering.
type DraftInfo struct {
	ID        string
	Title     string
	Author    string
	Content   string // serialized document JSON
	UpdatedAt time.Time
}

var (
	// ErrContentUnavailable indicates draft content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
