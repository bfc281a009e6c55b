// Package export writes completed summaries and their confidence metrics to
// Parquet for offline evaluation.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
)

// Row is one completed job in the export file.
type Row struct {
	JobID               int64     `json:"job_id" parquet:"job_id"`
	Owner               string    `json:"owner" parquet:"owner"`
	ISBN                string    `json:"isbn" parquet:"isbn"`
	Language            string    `json:"language" parquet:"language"`
	Model               string    `json:"model" parquet:"model"`
	Title               string    `json:"title" parquet:"title"`
	Authors             []string  `json:"authors" parquet:"authors,list"`
	SourceTypes         []string  `json:"source_types" parquet:"source_types,list"`
	SourceReliability   int32     `json:"source_reliability" parquet:"source_reliability"`
	ContentCoverage     int32     `json:"content_coverage" parquet:"content_coverage"`
	CrossReference      int32     `json:"cross_reference" parquet:"cross_reference"`
	CompositeConfidence int32     `json:"composite_confidence" parquet:"composite_confidence"`
	Summary             string    `json:"summary" parquet:"summary"`
	CompletedAt         time.Time `json:"completed_at" parquet:"completed_at,timestamp(millisecond)"`
}

// Source lists completed jobs with their documents.
type Source interface {
	CompletedDocuments(ctx context.Context) ([]jobs.CompletedDocument, error)
}

// RowFrom flattens a completed job into an export row.
func RowFrom(c jobs.CompletedDocument) Row {
	types := make([]string, 0, len(c.Document.Sources))
	for _, s := range c.Document.Sources {
		types = append(types, s.Type)
	}
	return Row{
		JobID:               c.Job.ID,
		Owner:               c.Job.Owner,
		ISBN:                c.Job.ISBN,
		Language:            c.Document.Language,
		Model:               c.Document.Model,
		Title:               c.Document.Title,
		Authors:             append([]string{}, c.Document.Authors...),
		SourceTypes:         types,
		SourceReliability:   int32(c.Document.SourceReliability),
		ContentCoverage:     int32(c.Document.ContentCoverage),
		CrossReference:      int32(c.Document.CrossReference),
		CompositeConfidence: int32(c.Document.CompositeConfidence),
		Summary:             c.Document.GeneratedSummary,
		CompletedAt:         c.Job.UpdatedAt.UTC(),
	}
}

// Write streams every completed job from src to w and returns the row count.
func Write(ctx context.Context, src Source, w io.Writer) (int, error) {
	completed, err := src.CompletedDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("export: list completed jobs: %w", err)
	}

	writer := parquet.NewGenericWriter[Row](w)
	rows := make([]Row, 0, len(completed))
	for _, c := range completed {
		rows = append(rows, RowFrom(c))
	}
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return 0, fmt.Errorf("export: write rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("export: close writer: %w", err)
	}
	return len(rows), nil
}

// WriteFile writes the export to path, replacing any existing file.
func WriteFile(ctx context.Context, src Source, path string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export: create %s: %w", path, err)
	}
	n, err := Write(ctx, src, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("export: close %s: %w", path, closeErr)
	}
	return n, err
}

// ReadFile loads rows from an export file.
func ReadFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("export: stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("export: open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	out := make([]Row, 0, pf.NumRows())
	batch := make([]Row, 64)
	for {
		n, err := reader.Read(batch)
		out = append(out, batch[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: read rows: %w", err)
		}
	}
	return out, nil
}
