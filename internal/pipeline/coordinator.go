package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IyadElwy/AiBookSummarizer/internal/aggregate"
	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/generation"
	"github.com/IyadElwy/AiBookSummarizer/internal/isbn"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
)

// Aggregator collects and scores sources for an ISBN.
type Aggregator interface {
	Aggregate(ctx context.Context, isbn string) (*aggregate.Result, error)
}

// Generator turns a document into summary text.
type Generator interface {
	Generate(ctx context.Context, doc *jobs.Document) (string, error)
}

// Publisher enqueues a message on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Deps are the collaborators a Coordinator drives. Store and Publisher are
// required; Aggregator and Generator are only needed by the stage handlers
// that use them, so a submit-only process may leave them nil.
type Deps struct {
	Store      jobs.Repository
	Publisher  Publisher
	Aggregator Aggregator
	Generator  Generator
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// Coordinator owns every status transition after a job is created.
type Coordinator struct {
	store      jobs.Repository
	publisher  Publisher
	aggregator Aggregator
	generator  Generator
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New validates deps and builds a Coordinator.
func New(deps Deps) (*Coordinator, error) {
	if deps.Store == nil || deps.Publisher == nil {
		return nil, errors.New("pipeline requires a job store and a publisher")
	}
	return &Coordinator{
		store:      deps.Store,
		publisher:  deps.Publisher,
		aggregator: deps.Aggregator,
		generator:  deps.Generator,
		metrics:    deps.Metrics,
		logger:     logging.NewComponentLogger(deps.Logger, "pipeline"),
	}, nil
}

// SubmitRequest is one summary request as received from a caller.
type SubmitRequest struct {
	Owner    string
	ISBN     string
	Language string
	Model    string
}

type validatedRequest struct {
	owner    string
	isbn     string
	language generation.Language
	model    generation.Model
}

func validate(req SubmitRequest) (validatedRequest, error) {
	var out validatedRequest
	out.owner = strings.TrimSpace(req.Owner)
	if out.owner == "" {
		return out, &ValidationError{Field: "owner", Value: req.Owner, Reason: "must not be empty"}
	}
	normalized, err := isbn.Normalize(req.ISBN)
	if err != nil {
		return out, &ValidationError{Field: "isbn", Value: req.ISBN, Reason: "not a valid ISBN-10 or ISBN-13"}
	}
	out.isbn = normalized
	if out.language, err = generation.ParseLanguage(req.Language); err != nil {
		return out, &ValidationError{Field: "language", Value: req.Language, Reason: "unsupported language"}
	}
	if out.model, err = generation.ParseModel(req.Model); err != nil {
		return out, &ValidationError{Field: "model", Value: req.Model, Reason: "unsupported model"}
	}
	return out, nil
}

// Submit validates req, creates the job and publishes its fetch message. If
// the publish fails the job is marked failed so it does not sit at
// validating_isbn forever.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*jobs.Job, error) {
	v, err := validate(req)
	if err != nil {
		return nil, err
	}

	job, err := c.store.Create(ctx, v.owner, v.isbn)
	if err != nil {
		return nil, infraError("submit", "create job", err)
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, c.logger)

	msg := broker.FetchRequest{ID: job.ID, ISBN: job.ISBN, Model: string(v.model), Language: string(v.language)}
	if err := c.publisher.Publish(ctx, broker.TopicFetch, msg); err != nil {
		if failErr := c.store.Fail(ctx, job.ID, jobs.ReasonEnqueueFailed); failErr != nil {
			logging.WarnWithContext(logger, "could not mark unpublished job failed", "submit_cleanup_failed", logging.Error(failErr))
		}
		c.metrics.JobFailed(jobs.ReasonEnqueueFailed)
		return nil, infraError("submit", "publish fetch", err)
	}

	c.metrics.JobSubmitted()
	logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldISBN, job.ISBN),
		logging.String("owner", job.Owner),
		logging.String("language", string(v.language)),
		logging.String("model", string(v.model)),
	)
	return job, nil
}

// StatusView is a job as reported to callers. Document is attached only once
// the job has completed.
type StatusView struct {
	Job      *jobs.Job
	Document *jobs.Document
}

// MarshalJSON flattens the document fields, when present, and the job fields
// into one object. Job fields win where both define a key.
func (v StatusView) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if v.Document != nil {
		if err := mergeJSON(out, v.Document); err != nil {
			return nil, err
		}
		delete(out, "job_id")
	}
	if v.Job != nil {
		if err := mergeJSON(out, v.Job); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func mergeJSON(dst map[string]any, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &dst)
}

// Status returns the job and, once completed, its document.
func (c *Coordinator) Status(ctx context.Context, id int64) (*StatusView, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &StatusView{Job: job}
	if job.Status != jobs.StatusCompleted {
		return view, nil
	}
	doc, err := c.store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document for job %d: %w", id, err)
	}
	view.Document = doc
	return view, nil
}

// List returns jobs matching filter, newest first.
func (c *Coordinator) List(ctx context.Context, filter jobs.Filter) ([]*jobs.Job, error) {
	return c.store.List(ctx, filter)
}

// fail records a stage failure. Losing the race to another terminal
// transition is reported as stale.
func (c *Coordinator) fail(ctx context.Context, logger *slog.Logger, job *jobs.Job, reason string, cause error) error {
	if err := c.store.Fail(ctx, job.ID, reason); err != nil {
		var terr *jobs.TransitionError
		if errors.As(err, &terr) {
			return fmt.Errorf("%w: job %d became %s before it could fail", ErrStaleMessage, job.ID, terr.Current)
		}
		if errors.Is(err, jobs.ErrJobNotFound) {
			return err
		}
		return infraError(stageOf(ctx), "fail job", err)
	}
	c.metrics.JobFailed(reason)
	attrs := []logging.Attr{
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "job will not produce a summary"),
	}
	if cause != nil {
		attrs = append(attrs, logging.Error(cause))
		if hint := services.Details(cause).Hint; hint != "" {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
		}
	}
	logging.WarnWithContext(logger, "job failed", "job_failed", attrs...)
	return nil
}

// advance applies a forward transition, turning a lost race into a stale result.
func (c *Coordinator) advance(ctx context.Context, job *jobs.Job, to jobs.Status) error {
	err := c.store.Transition(ctx, job.ID, to)
	if err == nil {
		job.Status = to
		return nil
	}
	var terr *jobs.TransitionError
	if errors.As(err, &terr) {
		job.Status = terr.Current
		return staleError(job, stageOf(ctx))
	}
	if errors.Is(err, jobs.ErrJobNotFound) {
		return err
	}
	return infraError(stageOf(ctx), "transition to "+string(to), err)
}

func (c *Coordinator) loadJob(ctx context.Context, id int64) (*jobs.Job, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return nil, err
		}
		return nil, infraError(stageOf(ctx), "load job", err)
	}
	return job, nil
}

func stageOf(ctx context.Context) string {
	stage, _ := services.StageFromContext(ctx)
	return stage
}
