package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var documentColumns = []string{
	"job_id", "language", "model", "title", "authors_json", "sources_json",
	"source_reliability", "content_coverage", "cross_reference", "composite_confidence",
	"generated_summary", "updated_at",
}

// SaveDocument inserts or replaces the document for doc.JobID. A previously
// generated summary is kept.
func (s *Store) SaveDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	authors, sources, err := EncodeDocumentLists(doc)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()

	insert := s.sb.Insert("documents").
		Columns(documentColumns[:len(documentColumns)-2]...).
		Columns("updated_at").
		Values(doc.JobID, doc.Language, doc.Model, nullableString(doc.Title), authors, sources,
			doc.SourceReliability, doc.ContentCoverage, doc.CrossReference, doc.CompositeConfidence,
			doc.UpdatedAt.Format(time.RFC3339Nano)).
		Suffix(`ON CONFLICT(job_id) DO UPDATE SET
            language = excluded.language,
            model = excluded.model,
            title = excluded.title,
            authors_json = excluded.authors_json,
            sources_json = excluded.sources_json,
            source_reliability = excluded.source_reliability,
            content_coverage = excluded.content_coverage,
            cross_reference = excluded.cross_reference,
            composite_confidence = excluded.composite_confidence,
            updated_at = excluded.updated_at`)
	if _, err := s.execBuilder(ctx, insert); err != nil {
		return fmt.Errorf("save document %d: %w", doc.JobID, err)
	}
	return nil
}

// GetDocument fetches the document for a job.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	query, args, err := s.sb.Select(documentColumns...).From("documents").Where(sq.Eq{"job_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	doc, err := scanDocument(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// SetSummary stores the generated summary on an existing document.
func (s *Store) SetSummary(ctx context.Context, id int64, summary string) error {
	res, err := s.execBuilder(ctx, s.sb.Update("documents").
		Set("generated_summary", summary).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339Nano)).
		Where(sq.Eq{"job_id": id}))
	if err != nil {
		return fmt.Errorf("set summary %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// CompletedDocuments returns every completed job with its document, oldest first.
func (s *Store) CompletedDocuments(ctx context.Context) ([]CompletedDocument, error) {
	columns := make([]string, 0, len(jobColumns)+len(documentColumns))
	for _, c := range jobColumns {
		columns = append(columns, "j."+c)
	}
	for _, c := range documentColumns {
		columns = append(columns, "d."+c)
	}
	query, args, err := s.sb.Select(columns...).
		From("jobs j").
		Join("documents d ON d.job_id = j.id").
		Where(sq.Eq{"j.status": string(StatusCompleted)}).
		OrderBy("j.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completed documents: %w", err)
	}
	defer rows.Close()

	var out []CompletedDocument
	for rows.Next() {
		var jr jobRow
		var dr documentRow
		if err := rows.Scan(append(jr.dest(), dr.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan completed document: %w", err)
		}
		doc, err := dr.document()
		if err != nil {
			return nil, err
		}
		out = append(out, CompletedDocument{Job: *jr.job(), Document: *doc})
	}
	return out, rows.Err()
}
