package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/api/internal/doc"
	"scribe/api/internal/suggest"
)

// Client implements DocumentStorage and SuggestionStorage against the
// Scribe API with bearer token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type draftPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   *doc.Node `json:"content"`
	UpdatedAt string    `json:"updated_at"`
}

func (c *Client) FetchDraft(ctx context.Context, id string) (Draft, error) {
	var payload draftPayload
	if err := c.do(ctx, http.MethodGet, "/api/drafts/"+id, nil, &payload); err != nil {
		return Draft{}, err
	}
	return Draft{
		ID:       payload.ID,
		Title:    payload.Title,
		Content:  payload.Content,
		Revision: payload.UpdatedAt,
	}, nil
}

func (c *Client) SaveDraft(ctx context.Context, id, title string, content *doc.Node) (string, error) {
	body := map[string]any{"title": title, "content": content}
	var payload draftPayload
	if err := c.do(ctx, http.MethodPut, "/api/drafts/"+id, body, &payload); err != nil {
		return "", err
	}
	return payload.UpdatedAt, nil
}

func (c *Client) FetchSuggestions(ctx context.Context, draftID string) ([]suggest.Suggestion, error) {
	// List endpoints wrap their arrays in an envelope.
	var payload struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/drafts/"+draftID+"/suggestions", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Suggestions, nil
}

func (c *Client) SetSuggestionStatus(ctx context.Context, draftID, suggestionID string, status suggest.Status) (suggest.Suggestion, error) {
	body := map[string]any{"status": status}
	var item suggest.Suggestion
	path := "/api/drafts/" + draftID + "/suggestions/" + suggestionID
	if err := c.do(ctx, http.MethodPut, path, body, &item); err != nil {
		return suggest.Suggestion{}, err
	}
	return item, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
