package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
)

// Manager coordinates broker consumption using registered stages.
type Manager struct {
	consumer           Consumer
	logger             *slog.Logger
	metrics            *metrics.Collector
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	heartbeat          *HeartbeatMonitor

	lanes []*laneState

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager using the broker and worker timing in cfg.
func NewManager(cfg *config.Config, consumer Consumer, logger *slog.Logger, collector *metrics.Collector) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow")
	return &Manager{
		consumer:           consumer,
		logger:             logger,
		metrics:            collector,
		pollInterval:       time.Duration(cfg.Broker.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workers.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			consumer,
			logger,
			time.Duration(cfg.Workers.HeartbeatInterval)*time.Second,
		),
	}
}

// Register adds a lane for stage with the given number of workers. It must be
// called before Start.
func (m *Manager) Register(stage Stage, workers int) error {
	if stage == nil {
		return fmt.Errorf("register stage: nil stage")
	}
	if workers <= 0 {
		workers = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("register stage %s: workflow already running", stage.Name())
	}
	for _, lane := range m.lanes {
		if lane.topic == stage.Topic() {
			return fmt.Errorf("register stage %s: topic %s already has a stage", stage.Name(), stage.Topic())
		}
	}
	m.lanes = append(m.lanes, &laneState{
		name:    stage.Name(),
		topic:   stage.Topic(),
		stage:   stage,
		workers: workers,
		logger:  m.logger.With(logging.String(logging.FieldStage, stage.Name()), logging.String(logging.FieldTopic, stage.Topic())),
	})
	return nil
}
