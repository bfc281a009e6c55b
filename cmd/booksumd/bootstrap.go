package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IyadElwy/AiBookSummarizer/internal/app"
	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/daemon"
)

// build wires the process-wide resources into a daemon. The returned closer
// releases the stores after the daemon has stopped.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, func(), error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	mgr, err := a.NewWorkflow()
	if err != nil {
		_ = a.Close()
		return nil, nil, fmt.Errorf("configure workflow: %w", err)
	}
	d, err := daemon.New(cfg, daemon.Deps{
		Store:    a.Store,
		Broker:   a.Broker,
		Workflow: mgr,
		Metrics:  a.Metrics,
		Gatherer: a.Registry,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, nil, fmt.Errorf("create daemon: %w", err)
	}
	closer := func() {
		_ = d.Close()
		_ = a.Close()
	}
	return d, closer, nil
}

// run starts the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	d, closer, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("daemon start: %w", err)
	}

	<-ctx.Done()
	logger.Info("booksumd shutting down")
	return nil
}
