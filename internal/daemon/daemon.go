package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/liveness"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
	"github.com/IyadElwy/AiBookSummarizer/internal/workflow"
)

// BacklogSource reports per-topic broker counts.
type BacklogSource interface {
	Stats(ctx context.Context) (map[string]broker.TopicStats, error)
}

// Deps are the process-wide resources the daemon coordinates.
type Deps struct {
	Store    jobs.Repository
	Broker   BacklogSource
	Workflow *workflow.Manager
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Daemon coordinates the worker lanes and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	deps     Deps
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
	server   *httpServer

	running atomic.Bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool                         `json:"running"`
	PID            int                          `json:"pid"`
	Worker         string                       `json:"worker"`
	Workflow       workflow.StatusSummary       `json:"workflow"`
	Jobs           map[jobs.Status]int          `json:"jobs,omitempty"`
	Backlog        map[string]broker.TopicStats `json:"backlog,omitempty"`
	LockFilePath   string                       `json:"lock_file"`
	MetricsAddress string                       `json:"metrics_address,omitempty"`
	Errors         []string                     `json:"errors,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Broker == nil || deps.Workflow == nil {
		return nil, errors.New("daemon requires config, store, broker, and workflow manager")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	logger := logging.NewComponentLogger(deps.Logger, "daemon")
	d := &Daemon{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.server = newHTTPServer(cfg.Paths.MetricsBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the workflow lanes, and starts the
// liveness, backlog, and HTTP loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another booksumd worker named %q is already running", d.cfg.Workers.Name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.deps.Workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.server.start(runCtx); err != nil {
		cancel()
		d.deps.Workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	interval := time.Duration(d.cfg.Workers.HeartbeatInterval) * time.Second
	d.loops.Add(2)
	go func() {
		defer d.loops.Done()
		liveness.Run(runCtx, interval, d.logger, d.reporter())
	}()
	go func() {
		defer d.loops.Done()
		d.refreshBacklogLoop(runCtx, interval)
	}()

	d.running.Store(true)
	d.logger.Info("booksumd started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("worker", d.cfg.Workers.Name),
		logging.String("lock", d.lockPath),
		logging.String("metrics_address", d.server.address()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.deps.Workflow.Stop()
	d.loops.Wait()
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("booksumd stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon. Stores are owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status. Store failures are reported in
// Errors rather than failing the call.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Worker:         d.cfg.Workers.Name,
		Workflow:       d.deps.Workflow.Status(),
		LockFilePath:   d.lockPath,
		MetricsAddress: d.server.address(),
	}
	if counts, err := d.deps.Store.Stats(ctx); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("job stats: %v", err))
	} else {
		status.Jobs = counts
	}
	if backlog, err := d.deps.Broker.Stats(ctx); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("broker stats: %v", err))
	} else {
		status.Backlog = backlog
	}
	return status
}

func (d *Daemon) reporter() liveness.Reporter {
	reporters := liveness.Multi{liveness.MetricReporter{Worker: d.cfg.Workers.Name, Collector: d.deps.Metrics}}
	if d.cfg.Workers.LivenessFile != "" {
		reporters = append(reporters, liveness.FileReporter{Path: d.cfg.Workers.LivenessFile})
	}
	return reporters
}

func (d *Daemon) refreshBacklogLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.refreshBacklog(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) refreshBacklog(ctx context.Context) {
	stats, err := d.deps.Broker.Stats(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("broker backlog refresh failed", logging.Error(err))
		}
		return
	}
	for _, topic := range []string{broker.TopicFetch, broker.TopicGenerate} {
		s := stats[topic]
		d.deps.Metrics.BrokerBacklog(topic, s.Ready, s.Leased, s.Dead)
	}
}
