package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
)

// ErrStaleMessage marks a delivery for a job that is already past the stage
// the message addresses. It is acknowledged and otherwise ignored.
var ErrStaleMessage = errors.New("stale message")

// ErrInvalidMessage marks a delivery whose payload cannot be decoded.
var ErrInvalidMessage = errors.New("invalid message")

// ValidationError names the submission field that was rejected.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return services.ErrValidation }

func staleError(job *jobs.Job, stage string) error {
	return fmt.Errorf("%w: job %d is %s, %s message ignored", ErrStaleMessage, job.ID, job.Status, stage)
}

func infraError(stage, operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTransient, stage, operation, "interrupted", err)
	}
	return services.Wrap(services.ErrTransient, stage, operation, "", err)
}

// Disposition reports whether a handler result settles the delivery, along
// with the metrics result label. Business outcomes (success, stale, missing
// job, undecodable payload) are acknowledged; anything else is retried.
func Disposition(err error) (ack bool, result string) {
	switch {
	case err == nil:
		return true, metrics.ResultAcked
	case errors.Is(err, ErrStaleMessage):
		return true, metrics.ResultStale
	case errors.Is(err, jobs.ErrJobNotFound):
		return true, metrics.ResultNotFound
	case errors.Is(err, ErrInvalidMessage):
		return true, metrics.ResultInvalid
	default:
		return false, metrics.ResultRetried
	}
}
