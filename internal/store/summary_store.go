package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jjenkins/foirequests/internal/model"
)

// SummaryStore handles database operations for request summaries
type SummaryStore struct {
	db *DB
}

// NewSummaryStore creates a new SummaryStore
func NewSummaryStore(db *DB) *SummaryStore {
	return &SummaryStore{db: db}
}

const summaryColumns = `id, title, body, public_body_names, summarisable_type, summarisable_id, created_at, updated_at`

// FindByOwner retrieves the summary owned by a source entity. It returns
// nil, nil when the entity has no summary yet.
func (s *SummaryStore) FindByOwner(ctx context.Context, owner model.Owner) (*model.RequestSummary, error) {
	query := s.db.rebind(`
		SELECT ` + summaryColumns + `
		FROM request_summaries
		WHERE summarisable_type = ? AND summarisable_id = ?
	`)

	sum, err := scanSummary(s.db.QueryRowContext(ctx, query, string(owner.Type), owner.ID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary for %s: %w", owner, err)
	}

	return sum, nil
}

// Upsert inserts or updates the summary for its owner. The unique
// (summarisable_type, summarisable_id) constraint means concurrent callers
// converge on one row, with the last write winning.
func (s *SummaryStore) Upsert(ctx context.Context, sum *model.RequestSummary) error {
	query := s.db.rebind(`
		INSERT INTO request_summaries (title, body, public_body_names, summarisable_type,
		                               summarisable_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (summarisable_type, summarisable_id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			public_body_names = EXCLUDED.public_body_names,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`)

	now := time.Now().UTC()
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = now
	}
	err := s.db.QueryRowContext(ctx, query,
		sum.Title,
		sum.Body,
		sum.PublicBodyNames,
		string(sum.Summarisable.Type),
		sum.Summarisable.ID,
		sum.CreatedAt,
		now,
	).Scan(&sum.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert summary for %s: %w", sum.Summarisable, err)
	}
	sum.UpdatedAt = now

	return nil
}

// DeleteByOwner removes the summary owned by a source entity
func (s *SummaryStore) DeleteByOwner(ctx context.Context, owner model.Owner) (bool, error) {
	return deleteSummary(ctx, s.db, s.db.DB, owner)
}

func deleteSummary(ctx context.Context, db *DB, q querier, owner model.Owner) (bool, error) {
	query := db.rebind(`DELETE FROM request_summaries WHERE summarisable_type = ? AND summarisable_id = ?`)

	res, err := q.ExecContext(ctx, query, string(owner.Type), owner.ID)
	if err != nil {
		return false, fmt.Errorf("failed to delete summary for %s: %w", owner, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete summary for %s: %w", owner, err)
	}

	return n > 0, nil
}

// CountByOwner returns how many summaries an entity owns; anything other
// than 0 or 1 indicates a broken uniqueness guarantee
func (s *SummaryStore) CountByOwner(ctx context.Context, owner model.Owner) (int, error) {
	query := s.db.rebind(`SELECT COUNT(*) FROM request_summaries WHERE summarisable_type = ? AND summarisable_id = ?`)

	var count int
	if err := s.db.QueryRowContext(ctx, query, string(owner.Type), owner.ID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count summaries for %s: %w", owner, err)
	}
	return count, nil
}

// CountByType returns the number of summaries per source kind
func (s *SummaryStore) CountByType(ctx context.Context) (map[model.SummarisableType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT summarisable_type, COUNT(*) FROM request_summaries GROUP BY summarisable_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count summaries: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.SummarisableType]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary count: %w", err)
		}
		counts[model.SummarisableType(typ)] = count
	}

	return counts, rows.Err()
}

// Search finds summaries whose title, body or public body names contain
// term, most recently updated first
func (s *SummaryStore) Search(ctx context.Context, term string, limit int) ([]model.RequestSummary, error) {
	if limit <= 0 {
		limit = 25
	}
	pattern := "%" + strings.ToLower(term) + "%"

	query := s.db.rebind(`
		SELECT ` + summaryColumns + `
		FROM request_summaries
		WHERE LOWER(title) LIKE ? OR LOWER(body) LIKE ? OR LOWER(COALESCE(public_body_names, '')) LIKE ?
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`)

	rows, err := s.db.QueryContext(ctx, query, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.RequestSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, *sum)
	}

	return summaries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*model.RequestSummary, error) {
	var sum model.RequestSummary
	var typ string
	err := row.Scan(
		&sum.ID,
		&sum.Title,
		&sum.Body,
		&sum.PublicBodyNames,
		&typ,
		&sum.Summarisable.ID,
		&sum.CreatedAt,
		&sum.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sum.Summarisable.Type = model.SummarisableType(typ)
	return &sum, nil
}
