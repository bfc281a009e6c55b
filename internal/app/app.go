// Package app builds the process-wide dependency set from configuration:
// job store, broker, metrics, providers, generation backend and the pipeline
// coordinator. Both binaries construct one App at startup and pass its
// fields down; nothing in the pipeline reaches for globals.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IyadElwy/AiBookSummarizer/internal/aggregate"
	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/generation"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs/pgstore"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
	"github.com/IyadElwy/AiBookSummarizer/internal/providers"
	"github.com/IyadElwy/AiBookSummarizer/internal/similarity"
	"github.com/IyadElwy/AiBookSummarizer/internal/workflow"
)

// App holds every long-lived dependency of one process.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       jobs.Repository
	Broker      *broker.Store
	Registry    *prometheus.Registry
	Metrics     *metrics.Collector
	Coordinator *pipeline.Coordinator
}

// OpenStore opens the job store selected by store.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (jobs.Repository, error) {
	switch cfg.Store.Driver {
	case "postgres":
		store, err := pgstore.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres job store: %w", err)
		}
		return store, nil
	case "", "sqlite":
		store, err := jobs.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite job store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// New opens the stores and wires the coordinator with the configured
// providers and generation backend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	brk, err := broker.Open(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open broker: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	method, err := similarity.ParseMethod(cfg.Aggregate.SimilarityMethod)
	if err != nil {
		_ = brk.Close()
		_ = store.Close()
		return nil, err
	}
	aggregator := aggregate.New(providers.FromConfig(cfg), aggregate.Options{
		ProviderTimeout: cfg.ProviderTimeout(),
		Method:          method,
		Metrics:         collector,
		Logger:          logger,
	})

	backend, err := generation.NewBackend(cfg)
	if err != nil {
		_ = brk.Close()
		_ = store.Close()
		return nil, fmt.Errorf("generation backend: %w", err)
	}
	stageOpts := generation.StageOptionsFromConfig(cfg)
	stageOpts.Metrics = collector
	stageOpts.Logger = logger

	coordinator, err := pipeline.New(pipeline.Deps{
		Store:      store,
		Publisher:  brk,
		Aggregator: aggregator,
		Generator:  generation.NewStage(backend, stageOpts),
		Metrics:    collector,
		Logger:     logger,
	})
	if err != nil {
		_ = brk.Close()
		_ = store.Close()
		return nil, err
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Broker:      brk,
		Registry:    registry,
		Metrics:     collector,
		Coordinator: coordinator,
	}, nil
}

// NewWorkflow builds a workflow manager with the fetch and generate lanes
// registered at the configured concurrency.
func (a *App) NewWorkflow() (*workflow.Manager, error) {
	mgr := workflow.NewManager(a.Config, a.Broker, a.Logger, a.Metrics)
	if err := mgr.Register(workflow.NewFetchStage(a.Coordinator), a.Config.Workers.FetchConcurrency); err != nil {
		return nil, err
	}
	if err := mgr.Register(workflow.NewGenerateStage(a.Coordinator), a.Config.Workers.GenerateConcurrency); err != nil {
		return nil, err
	}
	return mgr, nil
}

// Close releases the broker and store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
