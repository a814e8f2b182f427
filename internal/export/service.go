package export

import (
	"context"
	"fmt"
	"html/template"

	"scribe/api/internal/doc"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetDraftInfo(ctx context.Context, draftID, userID string) (DraftInfo, error)
}

// Service provides draft export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetDraftInfo(ctx, req.DraftID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	node, err := doc.Parse(info.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	switch req.Format {
	case FormatMarkdown:
		md := doc.ToMarkdown(node)
		body := fmt.Sprintf("# %s\n\n%s", info.Title, md)
		return &Result{
			Data:     []byte(body),
			Filename: sanitizeFilename(info.Title) + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	case FormatHTML, FormatPDF:
		contentHTML := doc.ToHTML(node)
		html, err := RenderDraftHTML(TemplateData{
			Title:       info.Title,
			ContentHTML: template.HTML(contentHTML),
			Author:      info.Author,
			UpdatedAt:   info.UpdatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		if req.Format == FormatHTML {
			return &Result{
				Data:     []byte(html),
				Filename: sanitizeFilename(info.Title) + ".html",
				MimeType: "text/html; charset=utf-8",
			}, nil
		}
		return exportPDF(html, info.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
