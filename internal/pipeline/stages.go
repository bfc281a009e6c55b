package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/IyadElwy/AiBookSummarizer/internal/aggregate"
	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
)

// Stage names used in logs and error context.
const (
	StageFetch    = "fetch"
	StageGenerate = "generate"
)

// HandleFetch aggregates sources for the job named by req, persists the
// document and publishes the generate message.
func (c *Coordinator) HandleFetch(ctx context.Context, req broker.FetchRequest) error {
	if c.aggregator == nil {
		return errors.New("pipeline: fetch stage has no aggregator")
	}
	ctx = services.WithJobID(services.WithStage(ctx, StageFetch), req.ID)
	logger := logging.WithContext(ctx, c.logger)

	job, err := c.loadJob(ctx, req.ID)
	if err != nil {
		return err
	}
	switch job.Status {
	case jobs.StatusValidatingISBN:
		if err := c.advance(ctx, job, jobs.StatusCollectingData); err != nil {
			return err
		}
	case jobs.StatusCollectingData:
		logger.Info("resuming interrupted aggregation", logging.String(logging.FieldEventType, "fetch_resume"))
	default:
		logger.Info("fetch message for job past collection ignored",
			logging.String(logging.FieldEventType, "stale_message"),
			logging.String("status", string(job.Status)),
		)
		return staleError(job, StageFetch)
	}

	logger.Info("collecting sources",
		logging.String(logging.FieldEventType, "fetch_start"),
		logging.String(logging.FieldISBN, job.ISBN),
	)
	res, err := c.aggregator.Aggregate(ctx, job.ISBN)
	if errors.Is(err, aggregate.ErrNoSourcesFound) {
		return c.fail(ctx, logger, job, jobs.ReasonNoSources, err)
	}
	if err != nil {
		return infraError(StageFetch, "aggregate", err)
	}

	doc := &jobs.Document{
		JobID:               job.ID,
		Language:            req.Language,
		Model:               req.Model,
		Title:               res.Title,
		Authors:             res.Authors,
		Sources:             res.Sources,
		SourceReliability:   res.Confidence.SourceReliability,
		ContentCoverage:     res.Confidence.ContentCoverage,
		CrossReference:      res.Confidence.CrossReference,
		CompositeConfidence: res.Confidence.Composite,
	}
	if err := c.store.SaveDocument(ctx, doc); err != nil {
		return infraError(StageFetch, "save document", err)
	}

	// Publish before leaving collecting_data so a failed publish leaves the
	// job resumable by fetch redelivery. A generate message that overtakes
	// the transition is retried by HandleGenerate.
	next := broker.GenerateRequest{ID: job.ID, Model: req.Model, Language: req.Language}
	if err := c.publisher.Publish(ctx, broker.TopicGenerate, next); err != nil {
		return infraError(StageFetch, "publish generate", err)
	}
	if err := c.advance(ctx, job, jobs.StatusDataCollected); err != nil {
		return err
	}
	logger.Info("sources collected",
		logging.String(logging.FieldEventType, "fetch_complete"),
		logging.Int("sources", len(doc.Sources)),
		logging.Int("composite_confidence", doc.CompositeConfidence),
	)
	return nil
}

// HandleGenerate produces the summary for the job named by req.
func (c *Coordinator) HandleGenerate(ctx context.Context, req broker.GenerateRequest) error {
	if c.generator == nil {
		return errors.New("pipeline: generate stage has no generator")
	}
	ctx = services.WithJobID(services.WithStage(ctx, StageGenerate), req.ID)
	logger := logging.WithContext(ctx, c.logger)

	job, err := c.loadJob(ctx, req.ID)
	if err != nil {
		return err
	}
	switch job.Status {
	case jobs.StatusDataCollected:
		if err := c.advance(ctx, job, jobs.StatusGeneratingSummary); err != nil {
			return err
		}
	case jobs.StatusGeneratingSummary:
		logger.Info("resuming interrupted generation", logging.String(logging.FieldEventType, "generate_resume"))
	case jobs.StatusCollectingData:
		logger.Info("generate message arrived before collection finished",
			logging.String(logging.FieldEventType, "generate_early"),
		)
		return infraError(StageGenerate, "await data", fmt.Errorf("job %d is still %s", job.ID, job.Status))
	case jobs.StatusCompleted, jobs.StatusFailed:
		logger.Info("generate message for finished job ignored",
			logging.String(logging.FieldEventType, "stale_message"),
			logging.String("status", string(job.Status)),
		)
		return staleError(job, StageGenerate)
	default:
		logging.WarnWithContext(logger, "generate message arrived before data was collected", "stale_message",
			logging.String("status", string(job.Status)),
		)
		return staleError(job, StageGenerate)
	}

	doc, err := c.store.GetDocument(ctx, job.ID)
	if errors.Is(err, jobs.ErrDocumentNotFound) {
		return c.fail(ctx, logger, job, jobs.ReasonDocumentMissing, err)
	}
	if err != nil {
		return infraError(StageGenerate, "load document", err)
	}

	summary, err := c.generator.Generate(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return infraError(StageGenerate, "generate", fmt.Errorf("%w: %w", ctx.Err(), err))
		}
		return c.fail(ctx, logger, job, jobs.ReasonGenerationFailed, err)
	}
	if err := c.store.SetSummary(ctx, job.ID, summary); err != nil {
		return infraError(StageGenerate, "save summary", err)
	}
	if err := c.advance(ctx, job, jobs.StatusCompleted); err != nil {
		return err
	}
	c.metrics.JobCompleted()
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.Int("summary_chars", len([]rune(summary))),
	)
	return nil
}
