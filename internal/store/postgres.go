package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"scribe/api/internal/suggest"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// user; callers cannot tell the two apart on purpose.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, email, name, passwordHash string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, COALESCE(name, ''), COALESCE(password_hash, ''), created_at
	`, email, name, passwordHash).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), COALESCE(password_hash, ''), created_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(name, ''), COALESCE(password_hash, ''), created_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ---- api tokens ----

func (s *PostgresStore) CreateAPIToken(ctx context.Context, userID, name, tokenHash, tokenPrefix string) (APIToken, error) {
	var token APIToken
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_tokens (user_id, name, token_hash, token_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, token_hash, token_prefix, last_used_at, created_at
	`, userID, name, tokenHash, tokenPrefix).Scan(
		&token.ID, &token.UserID, &token.Name, &token.TokenHash, &token.TokenPrefix, &token.LastUsedAt, &token.CreatedAt)
	if err != nil {
		return APIToken{}, fmt.Errorf("insert api token: %w", err)
	}
	return token, nil
}

// LookupAPIToken resolves a token hash to its owner and records the use.
func (s *PostgresStore) LookupAPIToken(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE api_tokens SET last_used_at = NOW()
		WHERE token_hash = $1
		RETURNING user_id
	`, tokenHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup api token: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) ListAPITokens(ctx context.Context, userID string) ([]APIToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, token_prefix, last_used_at, created_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []APIToken
	for rows.Next() {
		var token APIToken
		if err := rows.Scan(&token.ID, &token.UserID, &token.Name, &token.TokenPrefix, &token.LastUsedAt, &token.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// DeleteAPIToken removes a token and returns its hash so callers can drop
// any cache entry.
func (s *PostgresStore) DeleteAPIToken(ctx context.Context, userID, tokenID string) (string, error) {
	var tokenHash string
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM api_tokens WHERE id = $1 AND user_id = $2
		RETURNING token_hash
	`, tokenID, userID).Scan(&tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete api token: %w", err)
	}
	return tokenHash, nil
}

// ---- drafts ----

const draftColumns = `id, user_id, title, content, created_at, updated_at`

func scanDraft(row interface{ Scan(...any) error }) (Draft, error) {
	var draft Draft
	err := row.Scan(&draft.ID, &draft.UserID, &draft.Title, &draft.Content, &draft.CreatedAt, &draft.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("scan draft: %w", err)
	}
	return draft, nil
}

func (s *PostgresStore) CreateDraft(ctx context.Context, userID, title string, content json.RawMessage, bodyText string) (Draft, error) {
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO drafts (user_id, title, content, body_text)
		VALUES ($1, $2, $3, $4)
		RETURNING `+draftColumns+`
	`, userID, title, content, bodyText)
	return scanDraft(row)
}

func (s *PostgresStore) GetDraft(ctx context.Context, id, userID string) (Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+draftColumns+` FROM drafts WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanDraft(row)
}

func (s *PostgresStore) ListDrafts(ctx context.Context, userID string) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+draftColumns+` FROM drafts
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

// UpdateDraft changes title and/or content; nil leaves a field untouched.
// Every update bumps updated_at, which is the revision marker pollers watch.
func (s *PostgresStore) UpdateDraft(ctx context.Context, id, userID string, title *string, content json.RawMessage, bodyText *string) (Draft, error) {
	switch {
	case title != nil && content != nil:
		row := s.db.QueryRowContext(ctx, `
			UPDATE drafts SET title = $3, content = $4, body_text = COALESCE($5, body_text), updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+draftColumns+`
		`, id, userID, *title, content, bodyText)
		return scanDraft(row)
	case title != nil:
		row := s.db.QueryRowContext(ctx, `
			UPDATE drafts SET title = $3, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+draftColumns+`
		`, id, userID, *title)
		return scanDraft(row)
	case content != nil:
		row := s.db.QueryRowContext(ctx, `
			UPDATE drafts SET content = $3, body_text = COALESCE($4, body_text), updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+draftColumns+`
		`, id, userID, content, bodyText)
		return scanDraft(row)
	default:
		return Draft{}, fmt.Errorf("no fields to update")
	}
}

func (s *PostgresStore) DeleteDraft(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- suggestions (stored as a JSONB array on the draft row) ----

func (s *PostgresStore) ListSuggestions(ctx context.Context, draftID, userID string) ([]suggest.Suggestion, error) {
	var raw json.RawMessage
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(suggestions, '[]'::jsonb) FROM drafts WHERE id = $1 AND user_id = $2
	`, draftID, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read suggestions: %w", err)
	}

	var items []suggest.Suggestion
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return items, nil
}

// AppendSuggestion adds a suggestion to the draft's set. The draft's
// updated_at is bumped so open sessions notice the new suggestion on their
// next poll.
func (s *PostgresStore) AppendSuggestion(ctx context.Context, draftID, userID string, sug suggest.Suggestion) error {
	payload, err := json.Marshal([]suggest.Suggestion{sug})
	if err != nil {
		return fmt.Errorf("encode suggestion: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET suggestions = COALESCE(suggestions, '[]'::jsonb) || $3::jsonb,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, draftID, userID, payload)
	if err != nil {
		return fmt.Errorf("append suggestion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSuggestionStatus sets one suggestion's status and returns the
// updated record.
func (s *PostgresStore) UpdateSuggestionStatus(ctx context.Context, draftID, userID, suggestionID string, status suggest.Status) (suggest.Suggestion, error) {
	statusJSON, err := json.Marshal(status)
	if err != nil {
		return suggest.Suggestion{}, fmt.Errorf("encode status: %w", err)
	}

	var raw json.RawMessage
	err = s.db.QueryRowContext(ctx, `
		UPDATE drafts
		SET suggestions = (
			SELECT COALESCE(jsonb_agg(
				CASE
					WHEN s->>'id' = $3
					THEN jsonb_set(s, '{status}', $4::jsonb)
					ELSE s
				END
			), '[]'::jsonb)
			FROM jsonb_array_elements(COALESCE(suggestions, '[]'::jsonb)) s
		),
		updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING suggestions
	`, draftID, userID, suggestionID, statusJSON).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return suggest.Suggestion{}, ErrNotFound
	}
	if err != nil {
		return suggest.Suggestion{}, fmt.Errorf("update suggestion status: %w", err)
	}

	var items []suggest.Suggestion
	if err := json.Unmarshal(raw, &items); err != nil {
		return suggest.Suggestion{}, fmt.Errorf("decode suggestions: %w", err)
	}
	for _, item := range items {
		if item.ID == suggestionID {
			return item, nil
		}
	}
	return suggest.Suggestion{}, ErrNotFound
}

func (s *PostgresStore) DeleteSuggestion(ctx context.Context, draftID, userID, suggestionID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET suggestions = (
			SELECT COALESCE(jsonb_agg(s), '[]'::jsonb)
			FROM jsonb_array_elements(COALESCE(suggestions, '[]'::jsonb)) s
			WHERE s->>'id' != $3
		),
		updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, draftID, userID, suggestionID)
	if err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearSuggestions removes every suggestion, or only those matching
// statusFilter when it is non-empty.
func (s *PostgresStore) ClearSuggestions(ctx context.Context, draftID, userID string, statusFilter suggest.Status) error {
	var result sql.Result
	var err error
	if statusFilter != "" {
		result, err = s.db.ExecContext(ctx, `
			UPDATE drafts
			SET suggestions = (
				SELECT COALESCE(jsonb_agg(s), '[]'::jsonb)
				FROM jsonb_array_elements(COALESCE(suggestions, '[]'::jsonb)) s
				WHERE s->>'status' != $3
			),
			updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, draftID, userID, string(statusFilter))
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE drafts
			SET suggestions = '[]'::jsonb, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, draftID, userID)
	}
	if err != nil {
		return fmt.Errorf("clear suggestions: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- chat history ----

func (s *PostgresStore) ListChatMessages(ctx context.Context, draftID, userID string) ([]ChatMessage, error) {
	// Ownership check rides on the join.
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.draft_id, m.role, m.content, m.created_at
		FROM chat_messages m
		JOIN drafts d ON d.id = m.draft_id
		WHERE m.draft_id = $1 AND d.user_id = $2
		ORDER BY m.created_at
	`, draftID, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.DraftID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) AppendChatMessage(ctx context.Context, draftID, userID, role, content string) (ChatMessage, error) {
	var msg ChatMessage
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (draft_id, role, content)
		SELECT d.id, $3, $4 FROM drafts d WHERE d.id = $1 AND d.user_id = $2
		RETURNING id, draft_id, role, content, created_at
	`, draftID, userID, role, content).Scan(&msg.ID, &msg.DraftID, &msg.Role, &msg.Content, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatMessage{}, ErrNotFound
	}
	if err != nil {
		return ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}
	return msg, nil
}
