package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type scanner interface{ Scan(dest ...any) error }

type jobRow struct {
	id            int64
	owner         string
	isbn          string
	status        string
	failureReason sql.NullString
	createdRaw    string
	updatedRaw    string
}

func (r *jobRow) dest() []any {
	return []any{&r.id, &r.owner, &r.isbn, &r.status, &r.failureReason, &r.createdRaw, &r.updatedRaw}
}

func (r *jobRow) job() *Job {
	job := &Job{
		ID:            r.id,
		Owner:         r.owner,
		ISBN:          r.isbn,
		Status:        Status(r.status),
		FailureReason: r.failureReason.String,
	}
	if created, err := parseTimeString(r.createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(r.updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job
}

func scanJob(row scanner) (*Job, error) {
	var r jobRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.job(), nil
}

type documentRow struct {
	jobID               int64
	language            string
	model               string
	title               sql.NullString
	authorsJSON         string
	sourcesJSON         string
	sourceReliability   int
	contentCoverage     int
	crossReference      int
	compositeConfidence int
	summary             sql.NullString
	updatedRaw          string
}

func (r *documentRow) dest() []any {
	return []any{
		&r.jobID, &r.language, &r.model, &r.title, &r.authorsJSON, &r.sourcesJSON,
		&r.sourceReliability, &r.contentCoverage, &r.crossReference, &r.compositeConfidence,
		&r.summary, &r.updatedRaw,
	}
}

func (r *documentRow) document() (*Document, error) {
	doc := &Document{
		JobID:               r.jobID,
		Language:            r.language,
		Model:               r.model,
		Title:               r.title.String,
		SourceReliability:   r.sourceReliability,
		ContentCoverage:     r.contentCoverage,
		CrossReference:      r.crossReference,
		CompositeConfidence: r.compositeConfidence,
		GeneratedSummary:    r.summary.String,
	}
	if err := DecodeDocumentLists(doc, r.authorsJSON, r.sourcesJSON); err != nil {
		return nil, err
	}
	if updated, err := parseTimeString(r.updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return doc, nil
}

func scanDocument(row scanner) (*Document, error) {
	var r documentRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.document()
}

// EncodeDocumentLists renders the author and source lists as JSON columns.
func EncodeDocumentLists(doc *Document) (authors string, sources string, err error) {
	authorList := doc.Authors
	if authorList == nil {
		authorList = []string{}
	}
	sourceList := doc.Sources
	if sourceList == nil {
		sourceList = []SourceRecord{}
	}
	a, err := json.Marshal(authorList)
	if err != nil {
		return "", "", fmt.Errorf("encode authors: %w", err)
	}
	s, err := json.Marshal(sourceList)
	if err != nil {
		return "", "", fmt.Errorf("encode sources: %w", err)
	}
	return string(a), string(s), nil
}

// DecodeDocumentLists fills doc.Authors and doc.Sources from JSON columns.
func DecodeDocumentLists(doc *Document, authorsJSON, sourcesJSON string) error {
	if authorsJSON != "" {
		if err := json.Unmarshal([]byte(authorsJSON), &doc.Authors); err != nil {
			return fmt.Errorf("decode authors: %w", err)
		}
	}
	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &doc.Sources); err != nil {
			return fmt.Errorf("decode sources: %w", err)
		}
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
