package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nicscott/assessment-reports/internal/scoring"
)

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresMetaStore persists submission metadata in the relational
// database.
type PostgresMetaStore struct {
	pool db
}

// NewPostgresMetaStore initializes a store backed by pgxpool.
func NewPostgresMetaStore(pool *pgxpool.Pool) *PostgresMetaStore {
	if pool == nil {
		panic("submission: pgx pool required")
	}
	return &PostgresMetaStore{pool: pool}
}

func newPostgresMetaStoreWithDB(pool db) *PostgresMetaStore {
	if pool == nil {
		panic("submission: db required")
	}
	return &PostgresMetaStore{pool: pool}
}

var _ MetaStore = (*PostgresMetaStore)(nil)

func (s *PostgresMetaStore) Get(ctx context.Context, entryID int64) (*Meta, error) {
	query := `
		SELECT entry_id, form_id, report_id, uid_hash, top_sections, total_score,
		       status, status_error, status_updated_at, content
		FROM submission_meta
		WHERE entry_id = $1
	`
	var m Meta
	var sections, content []byte
	err := s.pool.QueryRow(ctx, query, entryID).Scan(
		&m.EntryID, &m.FormID, &m.ReportID, &m.UIDHash, &sections, &m.TotalScore,
		&m.Status, &m.StatusError, &m.StatusUpdatedAt, &content,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMetaNotFound
		}
		return nil, fmt.Errorf("submission: select meta: %w", err)
	}
	if len(sections) > 0 {
		_ = json.Unmarshal(sections, &m.TopSections)
	}
	if len(content) > 0 {
		_ = json.Unmarshal(content, &m.Content)
	}
	return &m, nil
}

func (s *PostgresMetaStore) ClaimPending(ctx context.Context, meta *Meta) (bool, error) {
	top := meta.TopSections
	if top == nil {
		top = []scoring.SectionScore{}
	}
	sections, err := json.Marshal(top)
	if err != nil {
		return false, fmt.Errorf("submission: encode top sections: %w", err)
	}
	query := `
		INSERT INTO submission_meta (entry_id, form_id, report_id, uid_hash, top_sections, total_score, status, status_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', now())
		ON CONFLICT (entry_id) DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query,
		meta.EntryID, meta.FormID, meta.ReportID, meta.UIDHash, sections, meta.TotalScore,
	)
	if err != nil {
		return false, fmt.Errorf("submission: claim pending: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *PostgresMetaStore) ClaimRunning(ctx context.Context, entryID int64) (bool, error) {
	query := `
		UPDATE submission_meta
		SET status = 'running', status_updated_at = now()
		WHERE entry_id = $1 AND status = 'pending'
	`
	ct, err := s.pool.Exec(ctx, query, entryID)
	if err != nil {
		return false, fmt.Errorf("submission: claim running: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *PostgresMetaStore) MarkReady(ctx context.Context, entryID int64, content map[string]string) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("submission: encode content: %w", err)
	}
	query := `
		UPDATE submission_meta
		SET status = 'ready', status_error = '', content = $2, status_updated_at = now()
		WHERE entry_id = $1
	`
	ct, err := s.pool.Exec(ctx, query, entryID, data)
	if err != nil {
		return fmt.Errorf("submission: mark ready: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMetaNotFound
	}
	return nil
}

func (s *PostgresMetaStore) MarkFailed(ctx context.Context, entryID int64, errMsg string) error {
	query := `
		UPDATE submission_meta
		SET status = 'failed', status_error = $2, status_updated_at = now()
		WHERE entry_id = $1
	`
	ct, err := s.pool.Exec(ctx, query, entryID, errMsg)
	if err != nil {
		return fmt.Errorf("submission: mark failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMetaNotFound
	}
	return nil
}

func (s *PostgresMetaStore) ResetPending(ctx context.Context, entryID int64) error {
	query := `
		UPDATE submission_meta
		SET status = 'pending', status_error = '', content = NULL, status_updated_at = now()
		WHERE entry_id = $1
	`
	ct, err := s.pool.Exec(ctx, query, entryID)
	if err != nil {
		return fmt.Errorf("submission: reset pending: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMetaNotFound
	}
	return nil
}
