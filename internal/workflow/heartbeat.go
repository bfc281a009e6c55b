package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
)

// LeaseExtender renews the lease on a delivery.
type LeaseExtender interface {
	ExtendLease(ctx context.Context, msg *broker.Message) error
}

// HeartbeatMonitor keeps in-flight deliveries leased while their stage runs.
type HeartbeatMonitor struct {
	extender LeaseExtender
	logger   *slog.Logger
	interval time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(extender LeaseExtender, logger *slog.Logger, interval time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HeartbeatMonitor{
		extender: extender,
		logger:   logger,
		interval: interval,
	}
}

// StartLoop extends the lease on msg every interval until ctx is cancelled.
// A lost lease is logged once and ends the loop; the handler keeps running
// and the redelivered copy will find the job already advanced.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, msg *broker.Message) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "workflow-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.extender.ExtendLease(ctx, msg)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				return
			case errors.Is(err, broker.ErrLeaseLost):
				logging.WarnWithContext(logger, "message lease lost", "lease_lost",
					logging.Int64("message_id", msg.ID),
					logging.String(logging.FieldImpact, "another worker may receive this message"),
				)
				return
			default:
				logger.Warn("lease extension failed", logging.Error(err), logging.Int64("message_id", msg.ID))
			}
		}
	}
}

func panicText(r any) string {
	return fmt.Sprintf("%v", r)
}
