package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when no job has the requested id.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition marks a transition outside the allowed successor set.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDocumentNotFound is returned when a job has no aggregated document.
	ErrDocumentNotFound = errors.New("document not found")
)

// Failure reason codes persisted alongside a failed job.
const (
	ReasonNoSources        = "no_sources"
	ReasonGenerationFailed = "generation_failed"
	ReasonDocumentMissing  = "document_missing"
	ReasonEnqueueFailed    = "enqueue_failed"
)

// TransitionError reports a rejected transition along with the status the job
// actually had when the update was attempted.
type TransitionError struct {
	ID      int64
	Current Status
	To      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %d: cannot move from %s to %s", e.ID, e.Current, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
