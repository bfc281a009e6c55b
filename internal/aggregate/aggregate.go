// Package aggregate collects book material from every enabled provider and
// scores the result.
//
// Providers that look a book up by ISBN run concurrently, each under its own
// timeout. Title-dependent providers run afterwards with the first title any
// earlier provider reported, in provider order. A provider contributes a
// source only when it returned non-empty text; if none did, Aggregate returns
// ErrNoSourcesFound. Individual provider failures never fail the aggregate.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
	"github.com/IyadElwy/AiBookSummarizer/internal/providers"
	"github.com/IyadElwy/AiBookSummarizer/internal/scoring"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
	"github.com/IyadElwy/AiBookSummarizer/internal/similarity"
)

// ErrNoSourcesFound means every provider came back empty or failed.
var ErrNoSourcesFound = errors.New("no sources found")

// Options tune an Aggregator.
type Options struct {
	ProviderTimeout time.Duration
	Method          similarity.Method
	Metrics         *metrics.Collector
	Logger          *slog.Logger
}

// Aggregator runs a fixed, ordered provider list.
type Aggregator struct {
	providers []providers.Provider
	timeout   time.Duration
	method    similarity.Method
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// Result is the aggregated, scored material for one ISBN.
type Result struct {
	Title      string
	Authors    []string
	Sources    []jobs.SourceRecord
	Confidence scoring.Confidence
	// Attempts holds every provider result in provider order, included or not.
	Attempts []providers.Result
}

// New builds an Aggregator over list, which must already be in aggregation order.
func New(list []providers.Provider, opts Options) *Aggregator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 30 * time.Second
	}
	if opts.Method == "" {
		opts.Method = similarity.Default
	}
	return &Aggregator{
		providers: append([]providers.Provider(nil), list...),
		timeout:   opts.ProviderTimeout,
		method:    opts.Method,
		metrics:   opts.Metrics,
		logger:    logging.NewComponentLogger(opts.Logger, "aggregate"),
	}
}

// Aggregate fetches, filters and scores sources for isbn.
func (a *Aggregator) Aggregate(ctx context.Context, isbn string) (*Result, error) {
	logger := logging.WithContext(ctx, a.logger)
	attempts := make([]providers.Result, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		if p.TitleDependent() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempts[i] = a.fetch(ctx, p, providers.Query{ISBN: isbn})
		}()
	}
	wg.Wait()

	title, authors := firstTitle(attempts), firstAuthors(attempts)
	for i, p := range a.providers {
		if !p.TitleDependent() {
			continue
		}
		if title == "" {
			attempts[i] = providers.Empty(p.Kind(), "no title")
			a.record(logger, attempts[i])
			continue
		}
		q := providers.Query{ISBN: isbn, Title: title}
		if len(authors) > 0 {
			q.Author = authors[0]
		}
		attempts[i] = a.fetch(ctx, p, q)
	}

	res := &Result{Attempts: attempts}
	var scored []scoring.Source
	for _, attempt := range attempts {
		if attempt.Outcome != providers.OutcomeFound || attempt.Text == "" {
			continue
		}
		res.Sources = append(res.Sources, jobs.SourceRecord{
			Type:        string(attempt.Kind),
			URL:         attempt.URL,
			Data:        attempt.Text,
			Reliability: scoring.Weight(attempt.Kind),
		})
		scored = append(scored, scoring.Source{Kind: attempt.Kind, Text: attempt.Text})
	}
	if len(res.Sources) == 0 {
		logger.Info("no provider returned content",
			logging.String(logging.FieldEventType, "aggregate_empty"),
			logging.String(logging.FieldISBN, isbn),
		)
		return res, ErrNoSourcesFound
	}

	res.Title = firstTitle(attempts)
	res.Authors = firstAuthors(attempts)
	conf, err := scoring.Score(scored, a.method)
	if err != nil {
		return nil, fmt.Errorf("score sources: %w", err)
	}
	res.Confidence = conf
	a.metrics.DocumentConfidence(conf.Composite)

	logger.Info("sources aggregated",
		logging.String(logging.FieldEventType, "aggregate_complete"),
		logging.String(logging.FieldISBN, isbn),
		logging.Int("sources", len(res.Sources)),
		logging.String("title", res.Title),
		logging.Int("source_reliability", conf.SourceReliability),
		logging.Int("content_coverage", conf.ContentCoverage),
		logging.Int("cross_reference", conf.CrossReference),
		logging.Int("composite_confidence", conf.Composite),
	)
	return res, nil
}

func (a *Aggregator) fetch(ctx context.Context, p providers.Provider, q providers.Query) (res providers.Result) {
	logger := logging.WithContext(ctx, a.logger)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = providers.Failed(p.Kind(), services.Wrap(services.ErrExternal, string(p.Kind()), "fetch", "provider panicked", fmt.Errorf("%v", r)))
		}
		res.Kind = p.Kind()
		res.Duration = time.Since(start)
		a.record(logger, res)
	}()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return p.Fetch(callCtx, q)
}

func (a *Aggregator) record(logger *slog.Logger, res providers.Result) {
	a.metrics.ProviderResult(string(res.Kind), string(res.Outcome), res.Duration)
	attrs := []logging.Attr{
		logging.String(logging.FieldProvider, string(res.Kind)),
		logging.String("outcome", string(res.Outcome)),
		logging.Duration("duration", res.Duration),
	}
	switch res.Outcome {
	case providers.OutcomeFound:
		logger.Debug("provider returned content", logging.Args(append(attrs, logging.Int("chars", len([]rune(res.Text))))...)...)
	case providers.OutcomeEmpty:
		logger.Info("provider returned nothing", logging.Args(append(attrs, logging.String("reason", res.Reason))...)...)
	default:
		attrs = append(attrs, logging.Error(res.Err))
		if hint := services.Details(res.Err).Hint; hint != "" {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
		}
		logging.WarnWithContext(logger, "provider failed", "provider_failed", attrs...)
	}
}

func firstTitle(results []providers.Result) string {
	for _, r := range results {
		if r.Outcome == providers.OutcomeFound && r.Title != "" {
			return r.Title
		}
	}
	return ""
}

func firstAuthors(results []providers.Result) []string {
	for _, r := range results {
		if r.Outcome == providers.OutcomeFound && len(r.Authors) > 0 {
			return append([]string(nil), r.Authors...)
		}
	}
	return nil
}
