package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries drafts.fts using plainto_tsquery and ts_rank, with
// ts_headline for snippets, scoped to the caller's drafts.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const tsQuery = "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.UserID}

	countSQL := fmt.Sprintf(`SELECT count(*) FROM drafts d
		WHERE d.fts @@ %s AND d.user_id = $2`, tsQuery)

	dataSQL := fmt.Sprintf(`SELECT d.id, d.title,
			ts_headline('english', coalesce(d.body_text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet
		FROM drafts d
		WHERE d.fts @@ %s AND d.user_id = $2
		ORDER BY ts_rank(d.fts, %s) DESC
		LIMIT %d OFFSET %d`, tsQuery, tsQuery, tsQuery, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all draft records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DraftRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, title, coalesce(body_text, '')
		FROM drafts
	`)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	defer rows.Close()

	records := make([]DraftRecord, 0)
	for rows.Next() {
		var r DraftRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.Body); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}

	return records, nil
}
