package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"scribe/api/internal/assets"
	"scribe/api/internal/auth"
	"scribe/api/internal/authpw"
	"scribe/api/internal/config"
	"scribe/api/internal/doc"
	"scribe/api/internal/export"
	"scribe/api/internal/history"
	"scribe/api/internal/search"
	"scribe/api/internal/session"
	"scribe/api/internal/store"
	"scribe/api/internal/suggest"
)

// Session identifies the authenticated caller for one request.
type Session struct {
	UserID   string
	UserName string
	Email    string
}

type dataStore interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, email, name, passwordHash string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateAPIToken(ctx context.Context, userID, name, tokenHash, tokenPrefix string) (store.APIToken, error)
	LookupAPIToken(ctx context.Context, tokenHash string) (string, error)
	ListAPITokens(ctx context.Context, userID string) ([]store.APIToken, error)
	DeleteAPIToken(ctx context.Context, userID, tokenID string) (string, error)
	CreateDraft(ctx context.Context, userID, title string, content json.RawMessage, bodyText string) (store.Draft, error)
	GetDraft(ctx context.Context, id, userID string) (store.Draft, error)
	ListDrafts(ctx context.Context, userID string) ([]store.Draft, error)
	UpdateDraft(ctx context.Context, id, userID string, title *string, content json.RawMessage, bodyText *string) (store.Draft, error)
	DeleteDraft(ctx context.Context, id, userID string) error
	ListSuggestions(ctx context.Context, draftID, userID string) ([]suggest.Suggestion, error)
	AppendSuggestion(ctx context.Context, draftID, userID string, sug suggest.Suggestion) error
	UpdateSuggestionStatus(ctx context.Context, draftID, userID, suggestionID string, status suggest.Status) (suggest.Suggestion, error)
	DeleteSuggestion(ctx context.Context, draftID, userID, suggestionID string) error
	ClearSuggestions(ctx context.Context, draftID, userID string, statusFilter suggest.Status) error
	ListChatMessages(ctx context.Context, draftID, userID string) ([]store.ChatMessage, error)
	AppendChatMessage(ctx context.Context, draftID, userID, role, content string) (store.ChatMessage, error)
}

type historyService interface {
	EnsureDraftRepo(draftID string, initial history.Content, author string) error
	CommitContent(draftID string, content history.Content, author, message string) (history.CommitInfo, error)
	GetContentByHash(draftID, hash string) (history.Content, error)
	History(draftID string, limit int) ([]history.CommitInfo, error)
}

type Service struct {
	cfg        config.Config
	store      dataStore
	history    historyService
	search     *search.Service
	assets     *assets.Service
	tokenCache *session.RedisStore
	limiter    *auth.LimiterPool
	passwords  *authpw.Service
	exporter   *export.Service
}

// New wires the service. search, assets, and tokenCache may be nil when the
// corresponding backend is not configured.
func New(cfg config.Config, dataStore *store.PostgresStore, hist *history.Service, searchSvc *search.Service, assetSvc *assets.Service, tokenCache *session.RedisStore) *Service {
	s := &Service{
		cfg:        cfg,
		store:      dataStore,
		history:    hist,
		search:     searchSvc,
		assets:     assetSvc,
		tokenCache: tokenCache,
		limiter:    auth.NewLimiterPool(cfg.RateLimitRPS, cfg.RateLimitBurst),
		passwords:  authpw.NewService(dataStore),
	}
	s.exporter = export.NewService(s)
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SessionFromToken resolves a raw bearer token to its owner. The Redis cache
// absorbs repeated lookups; Postgres remains authoritative.
func (s *Service) SessionFromToken(ctx context.Context, raw string) (Session, error) {
	if err := auth.Validate(raw); err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(raw)

	if !s.limiter.Allow(tokenHash) {
		return Session{}, domainError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
	}

	userID := ""
	if s.tokenCache != nil {
		if cached, err := s.tokenCache.LookupToken(ctx, tokenHash); err == nil {
			userID = cached
		}
	}
	if userID == "" {
		looked, err := s.store.LookupAPIToken(ctx, tokenHash)
		if err != nil {
			return Session{}, auth.ErrInvalidToken
		}
		userID = looked
		if s.tokenCache != nil {
			if err := s.tokenCache.CacheToken(ctx, tokenHash, userID); err != nil {
				log.Printf("app: cache token: %v", err)
			}
		}
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{UserID: user.ID, UserName: user.Name, Email: user.Email}, nil
}

// TokenPayload is returned when a token is created; Token carries the raw
// value, shown exactly once.
type TokenPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Token       string `json:"token"`
	TokenPrefix string `json:"token_prefix"`
}

func (s *Service) issueToken(ctx context.Context, userID, name string) (TokenPayload, error) {
	raw, err := auth.NewToken()
	if err != nil {
		return TokenPayload{}, err
	}
	record, err := s.store.CreateAPIToken(ctx, userID, name, auth.HashToken(raw), auth.DisplayPrefix(raw))
	if err != nil {
		return TokenPayload{}, err
	}
	return TokenPayload{
		ID:          record.ID,
		Name:        record.Name,
		Token:       raw,
		TokenPrefix: record.TokenPrefix,
	}, nil
}

// SignUp registers a user and returns their first API token.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (map[string]any, error) {
	user, err := s.passwords.SignUp(ctx, email, password, name)
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			return nil, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	token, err := s.issueToken(ctx, user.ID, "signup")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"userId": user.ID,
		"name":   user.Name,
		"token":  token.Token,
	}, nil
}

// SignIn verifies credentials and mints a fresh API token.
func (s *Service) SignIn(ctx context.Context, email, password string) (map[string]any, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return nil, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	token, err := s.issueToken(ctx, user.ID, "signin")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"userId": user.ID,
		"name":   user.Name,
		"token":  token.Token,
	}, nil
}

func (s *Service) CreateToken(ctx context.Context, session Session, name string) (TokenPayload, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "api token"
	}
	return s.issueToken(ctx, session.UserID, name)
}

func (s *Service) ListTokens(ctx context.Context, session Session) ([]store.APIToken, error) {
	return s.store.ListAPITokens(ctx, session.UserID)
}

func (s *Service) DeleteToken(ctx context.Context, session Session, tokenID string) error {
	tokenHash, err := s.store.DeleteAPIToken(ctx, session.UserID, tokenID)
	if err != nil {
		return err
	}
	if s.tokenCache != nil {
		if err := s.tokenCache.InvalidateToken(ctx, tokenHash); err != nil {
			log.Printf("app: invalidate token cache: %v", err)
		}
	}
	return nil
}

// Drafts

func (s *Service) ListDrafts(ctx context.Context, session Session) ([]store.Draft, error) {
	return s.store.ListDrafts(ctx, session.UserID)
}

func (s *Service) GetDraft(ctx context.Context, session Session, draftID string) (store.Draft, error) {
	return s.store.GetDraft(ctx, draftID, session.UserID)
}

func (s *Service) CreateDraft(ctx context.Context, session Session, title string, content json.RawMessage) (store.Draft, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled draft"
	}
	if len(content) == 0 {
		empty, err := doc.Serialize(doc.Empty())
		if err != nil {
			return store.Draft{}, err
		}
		content = json.RawMessage(empty)
	}
	node, err := doc.Parse(string(content))
	if err != nil {
		return store.Draft{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is not a valid document", nil)
	}

	draft, err := s.store.CreateDraft(ctx, session.UserID, title, content, doc.PlainText(node))
	if err != nil {
		return store.Draft{}, err
	}

	s.afterDraftWrite(draft, session, "Create draft")
	return draft, nil
}

func (s *Service) UpdateDraft(ctx context.Context, session Session, draftID string, title *string, content json.RawMessage) (store.Draft, error) {
	var bodyText *string
	if content != nil {
		node, err := doc.Parse(string(content))
		if err != nil {
			return store.Draft{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is not a valid document", nil)
		}
		text := doc.PlainText(node)
		bodyText = &text
	}

	draft, err := s.store.UpdateDraft(ctx, draftID, session.UserID, title, content, bodyText)
	if err != nil {
		return store.Draft{}, err
	}

	s.afterDraftWrite(draft, session, "Autosave")
	return draft, nil
}

func (s *Service) DeleteDraft(ctx context.Context, session Session, draftID string) error {
	if err := s.store.DeleteDraft(ctx, draftID, session.UserID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteDraft(draftID)
	}
	return nil
}

// afterDraftWrite pushes the saved draft into the search index and commits a
// history snapshot. Both are best effort.
func (s *Service) afterDraftWrite(draft store.Draft, session Session, message string) {
	if s.search != nil {
		body := ""
		if node, err := doc.Parse(string(draft.Content)); err == nil {
			body = doc.PlainText(node)
		}
		s.search.IndexDraft(search.DraftRecord{
			ID:     draft.ID,
			UserID: draft.UserID,
			Title:  draft.Title,
			Body:   body,
		})
	}

	if s.history != nil {
		snapshot := history.Content{Title: draft.Title, Doc: draft.Content}
		if err := s.history.EnsureDraftRepo(draft.ID, snapshot, session.UserName); err != nil {
			log.Printf("app: ensure draft repo %s: %v", draft.ID, err)
			return
		}
		if _, err := s.history.CommitContent(draft.ID, snapshot, session.UserName, message); err != nil {
			// Unchanged content commits fail with an empty-commit error; fine.
			log.Printf("app: commit draft %s: %v", draft.ID, err)
		}
	}
}

// Suggestions

func (s *Service) ListSuggestions(ctx context.Context, session Session, draftID string) ([]suggest.Suggestion, error) {
	return s.store.ListSuggestions(ctx, draftID, session.UserID)
}

func (s *Service) AddSuggestion(ctx context.Context, session Session, draftID, original, suggested, reason string) (suggest.Suggestion, error) {
	if strings.TrimSpace(original) == "" || suggested == "" {
		return suggest.Suggestion{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "original and suggested are required", nil)
	}
	sug := suggest.Suggestion{
		ID:        uuid.NewString(),
		Original:  original,
		Suggested: suggested,
		Reason:    reason,
		Status:    suggest.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendSuggestion(ctx, draftID, session.UserID, sug); err != nil {
		return suggest.Suggestion{}, err
	}
	return sug, nil
}

func (s *Service) SetSuggestionStatus(ctx context.Context, session Session, draftID, suggestionID string, status suggest.Status) (suggest.Suggestion, error) {
	if !status.Valid() {
		return suggest.Suggestion{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be pending, accepted, or rejected", nil)
	}
	return s.store.UpdateSuggestionStatus(ctx, draftID, session.UserID, suggestionID, status)
}

func (s *Service) DeleteSuggestion(ctx context.Context, session Session, draftID, suggestionID string) error {
	return s.store.DeleteSuggestion(ctx, draftID, session.UserID, suggestionID)
}

func (s *Service) ClearSuggestions(ctx context.Context, session Session, draftID string, statusFilter suggest.Status) error {
	if statusFilter != "" && !statusFilter.Valid() {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be pending, accepted, or rejected", nil)
	}
	return s.store.ClearSuggestions(ctx, draftID, session.UserID, statusFilter)
}

// Chat history

func (s *Service) ListChatMessages(ctx context.Context, session Session, draftID string) ([]store.ChatMessage, error) {
	return s.store.ListChatMessages(ctx, draftID, session.UserID)
}

func (s *Service) AddChatMessage(ctx context.Context, session Session, draftID, role, content string) (store.ChatMessage, error) {
	if role != "user" && role != "assistant" {
		return store.ChatMessage{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "role must be user or assistant", nil)
	}
	if strings.TrimSpace(content) == "" {
		return store.ChatMessage{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	return s.store.AppendChatMessage(ctx, draftID, session.UserID, role, content)
}

// Search

func (s *Service) Search(ctx context.Context, session Session, q string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}, nil
	}
	return s.search.Search(search.Query{
		Text:   q,
		UserID: session.UserID,
		Limit:  limit,
		Offset: offset,
	}), nil
}

// Export

// GetDraftInfo satisfies the export data store.
func (s *Service) GetDraftInfo(ctx context.Context, draftID, userID string) (export.DraftInfo, error) {
	draft, err := s.store.GetDraft(ctx, draftID, userID)
	if err != nil {
		return export.DraftInfo{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return export.DraftInfo{}, err
	}
	return export.DraftInfo{
		ID:        draft.ID,
		Title:     draft.Title,
		Author:    user.Name,
		Content:   string(draft.Content),
		UpdatedAt: draft.UpdatedAt,
	}, nil
}

func (s *Service) Export(ctx context.Context, session Session, draftID string, format export.Format) (*export.Result, error) {
	if !format.Valid() {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html, markdown, or pdf", nil)
	}
	result, err := s.exporter.Export(ctx, export.Request{
		DraftID: draftID,
		UserID:  session.UserID,
		Format:  format,
	})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusNotImplemented, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil)
		}
		return nil, err
	}
	return result, nil
}

// History

func (s *Service) DraftHistory(ctx context.Context, session Session, draftID string, limit int) ([]history.CommitInfo, error) {
	if _, err := s.store.GetDraft(ctx, draftID, session.UserID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.CommitInfo{}, nil
	}
	items, err := s.history.History(draftID, limit)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "No history for draft", nil)
	}
	return items, nil
}

func (s *Service) DraftHistoryContent(ctx context.Context, session Session, draftID, hash string) (history.Content, error) {
	if _, err := s.store.GetDraft(ctx, draftID, session.UserID); err != nil {
		return history.Content{}, err
	}
	if s.history == nil {
		return history.Content{}, domainError(http.StatusNotFound, "NOT_FOUND", "No history for draft", nil)
	}
	content, err := s.history.GetContentByHash(draftID, hash)
	if err != nil {
		return history.Content{}, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return content, nil
}

// Assets

func (s *Service) UploadAsset(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.assets == nil {
		return "", domainError(http.StatusNotImplemented, "ASSETS_UNAVAILABLE", "Asset storage is not configured", nil)
	}
	return s.assets.Upload(ctx, filename, contentType, size, r)
}
