package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists reports and sections in the relational database.
type PostgresStore struct {
	pool db
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("report: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithDB(pool db) *PostgresStore {
	if pool == nil {
		panic("report: db required")
	}
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) GetByFormID(ctx context.Context, formID int64) (*Report, error) {
	query := `
		SELECT id, title, source_form_id, opening_content, closing_content, ai_blocks, published
		FROM reports
		WHERE source_form_id = $1 AND published
		ORDER BY id
		LIMIT 1
	`
	return scanReport(s.pool.QueryRow(ctx, query, formID))
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Report, error) {
	query := `
		SELECT id, title, source_form_id, opening_content, closing_content, ai_blocks, published
		FROM reports
		WHERE id = $1
	`
	return scanReport(s.pool.QueryRow(ctx, query, id))
}

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	var blocks []byte
	if err := row.Scan(&r.ID, &r.Title, &r.SourceFormID, &r.OpeningContent, &r.ClosingContent, &blocks, &r.Published); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("report: select failed: %w", err)
	}
	if len(blocks) > 0 {
		// Malformed stored JSON degrades to "no blocks", never an error.
		_ = json.Unmarshal(blocks, &r.Blocks)
	}
	return &r, nil
}

func (s *PostgresStore) ListPublishedSections(ctx context.Context, reportID int64) ([]Section, error) {
	query := `
		SELECT id, report_id, title, content, field_weights, published, position
		FROM report_sections
		WHERE report_id = $1 AND published
		ORDER BY position, id
	`
	rows, err := s.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("report: list sections failed: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		var weights []byte
		if err := rows.Scan(&sec.ID, &sec.ReportID, &sec.Title, &sec.Content, &weights, &sec.Published, &sec.Position); err != nil {
			return nil, fmt.Errorf("report: scan section failed: %w", err)
		}
		if len(weights) > 0 {
			_ = json.Unmarshal(weights, &sec.FieldWeights)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report: iterate sections failed: %w", err)
	}
	return sections, nil
}

func (s *PostgresStore) GetSection(ctx context.Context, id int64) (*Section, error) {
	query := `
		SELECT id, report_id, title, content, field_weights, published, position
		FROM report_sections
		WHERE id = $1
	`
	var sec Section
	var weights []byte
	row := s.pool.QueryRow(ctx, query, id)
	if err := row.Scan(&sec.ID, &sec.ReportID, &sec.Title, &sec.Content, &weights, &sec.Published, &sec.Position); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("report: select section failed: %w", err)
	}
	if len(weights) > 0 {
		_ = json.Unmarshal(weights, &sec.FieldWeights)
	}
	return &sec, nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, r *Report) error {
	r.Blocks = NormalizeBlocks(r.Blocks)
	blocks, err := json.Marshal(r.Blocks)
	if err != nil {
		return fmt.Errorf("report: encode blocks failed: %w", err)
	}

	if r.ID == 0 {
		query := `
			INSERT INTO reports (title, source_form_id, opening_content, closing_content, ai_blocks, published)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := s.pool.QueryRow(ctx, query,
			r.Title, r.SourceFormID, r.OpeningContent, r.ClosingContent, blocks, r.Published,
		).Scan(&r.ID); err != nil {
			return fmt.Errorf("report: insert failed: %w", err)
		}
		return nil
	}

	query := `
		UPDATE reports
		SET title = $2, source_form_id = $3, opening_content = $4, closing_content = $5, ai_blocks = $6, published = $7
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query,
		r.ID, r.Title, r.SourceFormID, r.OpeningContent, r.ClosingContent, blocks, r.Published,
	); err != nil {
		return fmt.Errorf("report: update failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSection(ctx context.Context, sec *Section) error {
	sec.FieldWeights = NormalizeWeights(sec.FieldWeights)
	weights, err := json.Marshal(sec.FieldWeights)
	if err != nil {
		return fmt.Errorf("report: encode weights failed: %w", err)
	}

	if sec.ID == 0 {
		query := `
			INSERT INTO report_sections (report_id, title, content, field_weights, published, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := s.pool.QueryRow(ctx, query,
			sec.ReportID, sec.Title, sec.Content, weights, sec.Published, sec.Position,
		).Scan(&sec.ID); err != nil {
			return fmt.Errorf("report: insert section failed: %w", err)
		}
		return nil
	}

	query := `
		UPDATE report_sections
		SET report_id = $2, title = $3, content = $4, field_weights = $5, published = $6, position = $7
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query,
		sec.ID, sec.ReportID, sec.Title, sec.Content, weights, sec.Published, sec.Position,
	); err != nil {
		return fmt.Errorf("report: update section failed: %w", err)
	}
	return nil
}
