// Package pgstore is the PostgreSQL implementation of jobs.Repository, for
// deployments that run several worker hosts against one database.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
)

// Store persists jobs and documents in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

var _ jobs.Repository = (*Store)(nil)

// Open connects to dsn, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const jobColumns = "id, owner, isbn, status, COALESCE(failure_reason, ''), created_at, updated_at"

func scanJob(row pgx.Row) (*jobs.Job, error) {
	var (
		job    jobs.Job
		status string
	)
	if err := row.Scan(&job.ID, &job.Owner, &job.ISBN, &status, &job.FailureReason, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = jobs.Status(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

func (s *Store) Create(ctx context.Context, owner, isbn string) (*jobs.Job, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (owner, isbn, status) VALUES ($1, $2, $3) RETURNING `+jobColumns,
		owner, isbn, string(jobs.StatusValidatingISBN))
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*jobs.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, jobs.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *Store) List(ctx context.Context, filter jobs.Filter) ([]*jobs.Job, error) {
	builder := s.sb.Select(jobColumns).From("jobs").OrderBy("created_at DESC", "id DESC")
	query, args, err := jobs.ApplyFilter(builder, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (map[jobs.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[jobs.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[jobs.Status(status)] = count
	}
	return stats, rows.Err()
}

func (s *Store) Transition(ctx context.Context, id int64, to jobs.Status) error {
	return s.transition(ctx, id, to, nil)
}

func (s *Store) Fail(ctx context.Context, id int64, reason string) error {
	var value *string
	if reason != "" {
		value = &reason
	}
	return s.transition(ctx, id, jobs.StatusFailed, value)
}

func (s *Store) transition(ctx context.Context, id int64, to jobs.Status, reason *string) error {
	if preds := jobs.PredecessorStrings(to); len(preds) > 0 {
		update := s.sb.Update("jobs").
			Set("status", string(to)).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": id, "status": preds})
		if to == jobs.StatusFailed {
			update = update.Set("failure_reason", reason)
		}
		query, args, err := update.ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		tag, err := s.pool.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("transition job %d to %s: %w", id, to, err)
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return &jobs.TransitionError{ID: id, Current: current.Status, To: to}
}

const documentColumns = `job_id, language, model, COALESCE(title, ''), authors_json::text, sources_json::text,
    source_reliability, content_coverage, cross_reference, composite_confidence,
    COALESCE(generated_summary, ''), updated_at`

func scanDocument(row pgx.Row) (*jobs.Document, error) {
	var (
		doc              jobs.Document
		authors, sources string
	)
	if err := row.Scan(&doc.JobID, &doc.Language, &doc.Model, &doc.Title, &authors, &sources,
		&doc.SourceReliability, &doc.ContentCoverage, &doc.CrossReference, &doc.CompositeConfidence,
		&doc.GeneratedSummary, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := jobs.DecodeDocumentLists(&doc, authors, sources); err != nil {
		return nil, err
	}
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

func (s *Store) SaveDocument(ctx context.Context, doc *jobs.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	authors, sources, err := jobs.EncodeDocumentLists(doc)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	var title *string
	if doc.Title != "" {
		title = &doc.Title
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (job_id, language, model, title, authors_json, sources_json,
			source_reliability, content_coverage, cross_reference, composite_confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			language = EXCLUDED.language,
			model = EXCLUDED.model,
			title = EXCLUDED.title,
			authors_json = EXCLUDED.authors_json,
			sources_json = EXCLUDED.sources_json,
			source_reliability = EXCLUDED.source_reliability,
			content_coverage = EXCLUDED.content_coverage,
			cross_reference = EXCLUDED.cross_reference,
			composite_confidence = EXCLUDED.composite_confidence,
			updated_at = EXCLUDED.updated_at`,
		doc.JobID, doc.Language, doc.Model, title, authors, sources,
		doc.SourceReliability, doc.ContentCoverage, doc.CrossReference, doc.CompositeConfidence, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save document %d: %w", doc.JobID, err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*jobs.Document, error) {
	doc, err := scanDocument(s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE job_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, jobs.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *Store) SetSummary(ctx context.Context, id int64, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET generated_summary = $1, updated_at = $2 WHERE job_id = $3`,
		summary, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set summary %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return jobs.ErrDocumentNotFound
	}
	return nil
}

func (s *Store) CompletedDocuments(ctx context.Context) ([]jobs.CompletedDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT j.id FROM jobs j JOIN documents d ON d.job_id = j.id
		WHERE j.status = $1 ORDER BY j.id`, string(jobs.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("list completed documents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan completed ids: %w", err)
	}

	out := make([]jobs.CompletedDocument, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		doc, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, jobs.CompletedDocument{Job: *job, Document: *doc})
	}
	return out, nil
}
