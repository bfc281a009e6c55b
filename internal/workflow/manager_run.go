package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
)

const settleTimeout = 10 * time.Second

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	lanes := append([]*laneState(nil), m.lanes...)
	for _, lane := range lanes {
		m.wg.Add(lane.workers)
	}
	m.mu.Unlock()

	for _, lane := range lanes {
		for worker := 0; worker < lane.workers; worker++ {
			go m.runWorker(runCtx, lane, worker)
		}
		lane.logger.Info("lane started",
			logging.String(logging.FieldEventType, "lane_start"),
			logging.Int("workers", lane.workers),
		)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight deliveries
// to be settled.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, lane *laneState, worker int) {
	defer m.wg.Done()
	logger := lane.logger.With(logging.Int("worker", worker))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := m.processNext(ctx, lane, logger)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleReceiveError(ctx, logger, err)
			continue
		}
		if !processed {
			m.waitForMessageOrShutdown(ctx)
		}
	}
}

// ProcessOne receives and handles at most one message on topic. It reports
// whether a message was handled. Tests and one-shot runs use it to drive the
// pipeline without starting the lanes.
func (m *Manager) ProcessOne(ctx context.Context, topic string) (bool, error) {
	m.mu.RLock()
	var lane *laneState
	for _, l := range m.lanes {
		if l.topic == topic {
			lane = l
			break
		}
	}
	m.mu.RUnlock()
	if lane == nil {
		return false, errors.New("no stage registered for topic " + topic)
	}
	return m.processNext(ctx, lane, lane.logger)
}

// processNext returns an error only when the broker itself failed.
func (m *Manager) processNext(ctx context.Context, lane *laneState, logger *slog.Logger) (bool, error) {
	msg, err := m.consumer.Receive(ctx, lane.topic)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	m.processMessage(ctx, lane, logger, msg)
	return true, nil
}

func (m *Manager) processMessage(ctx context.Context, lane *laneState, laneLogger *slog.Logger, msg *broker.Message) {
	lane.busy.Add(1)
	defer lane.busy.Add(-1)

	stageCtx := services.WithRequestID(services.WithTopic(services.WithStage(ctx, lane.name), msg.Topic), uuid.NewString())
	logger := logging.WithContext(stageCtx, laneLogger).With(
		logging.Int64("message_id", msg.ID),
		logging.Int("attempt", msg.Attempts),
	)
	logger.Debug("message received", logging.String(logging.FieldEventType, "message_received"))

	start := time.Now()
	handlerErr := m.handleWithHeartbeat(stageCtx, lane, msg)
	ack, result := pipeline.Disposition(handlerErr)
	m.metrics.StageMessage(msg.Topic, result, time.Since(start))

	// Settle even when shutdown cancelled ctx, so an interrupted delivery is
	// released rather than waiting out its lease.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if ack {
		lane.processed.Add(1)
		if handlerErr != nil {
			logger.Info("message settled without work",
				logging.String(logging.FieldEventType, "message_"+result),
				logging.Error(handlerErr),
			)
		}
		if err := m.consumer.Ack(settleCtx, msg); err != nil {
			m.setLastError(err)
			logging.WarnWithContext(logger, "ack failed; message will be redelivered", "message_ack_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "handlers are idempotent, redelivery is a no-op"),
			)
		}
		return
	}

	lane.retried.Add(1)
	m.setLastError(handlerErr)
	details := services.Details(handlerErr)
	attrs := []logging.Attr{
		logging.Error(handlerErr),
		logging.String(logging.FieldImpact, "message will be redelivered"),
	}
	if details.Hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, details.Hint))
	}
	if errors.Is(handlerErr, context.Canceled) {
		logger.Info("stage interrupted by shutdown", logging.String(logging.FieldEventType, "message_interrupted"))
	} else {
		logging.ErrorWithContext(logger, "stage failed", "message_retry", attrs...)
	}
	if err := m.consumer.Nack(settleCtx, msg, handlerErr); err != nil {
		logging.WarnWithContext(logger, "nack failed; message returns when its lease expires", "message_nack_failed", logging.Error(err))
	}
}

func (m *Manager) handleWithHeartbeat(ctx context.Context, lane *laneState, msg *broker.Message) (err error) {
	hbCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &wg, msg)
	defer func() {
		cancel()
		wg.Wait()
	}()
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, lane.name, "handle", "stage panicked", errors.New(panicText(r)))
		}
	}()
	return lane.stage.Handle(ctx, msg)
}

func (m *Manager) handleReceiveError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to receive message",
		logging.Error(err),
		logging.String(logging.FieldEventType, "broker_receive_failed"),
		logging.String(logging.FieldErrorHint, "check broker database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetryInterval):
	}
}

func (m *Manager) waitForMessageOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
