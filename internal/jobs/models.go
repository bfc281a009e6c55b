package jobs

import (
	"context"
	"time"
)

// Job is the persistent record tracking one summary request.
type Job struct {
	ID            int64     `json:"id" yaml:"id"`
	Owner         string    `json:"owner" yaml:"owner"`
	ISBN          string    `json:"isbn" yaml:"isbn"`
	Status        Status    `json:"status" yaml:"status"`
	FailureReason string    `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// SourceRecord is the text one provider contributed to a document.
type SourceRecord struct {
	Type        string `json:"type" yaml:"type"`
	URL         string `json:"url" yaml:"url"`
	Data        string `json:"data" yaml:"data"`
	Reliability int    `json:"reliability" yaml:"reliability"`
}

// Document is the aggregated, scored source material for a job plus the
// generated summary once available.
type Document struct {
	JobID               int64          `json:"job_id" yaml:"job_id"`
	Language            string         `json:"language" yaml:"language"`
	Model               string         `json:"model" yaml:"model"`
	Title               string         `json:"title,omitempty" yaml:"title,omitempty"`
	Authors             []string       `json:"authors,omitempty" yaml:"authors,omitempty"`
	Sources             []SourceRecord `json:"sources" yaml:"sources"`
	SourceReliability   int            `json:"source_reliability" yaml:"source_reliability"`
	ContentCoverage     int            `json:"content_coverage" yaml:"content_coverage"`
	CrossReference      int            `json:"cross_reference" yaml:"cross_reference"`
	CompositeConfidence int            `json:"composite_confidence" yaml:"composite_confidence"`
	GeneratedSummary    string         `json:"generated_summary,omitempty" yaml:"generated_summary,omitempty"`
	UpdatedAt           time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Filter narrows List results. Zero values mean no constraint; a zero Limit
// returns every match.
type Filter struct {
	Owner    string
	Statuses []Status
	Limit    int
	Offset   int
}

// CompletedDocument pairs a completed job with its document for export.
type CompletedDocument struct {
	Job      Job
	Document Document
}

// Repository is the persistence contract shared by the SQLite and PostgreSQL
// job stores.
type Repository interface {
	Create(ctx context.Context, owner, isbn string) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	List(ctx context.Context, filter Filter) ([]*Job, error)
	Stats(ctx context.Context) (map[Status]int, error)
	Transition(ctx context.Context, id int64, to Status) error
	Fail(ctx context.Context, id int64, reason string) error
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	SetSummary(ctx context.Context, id int64, summary string) error
	CompletedDocuments(ctx context.Context) ([]CompletedDocument, error)
	Close() error
}
