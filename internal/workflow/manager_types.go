package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
)

// Consumer is the broker surface a lane needs.
type Consumer interface {
	Receive(ctx context.Context, topic string) (*broker.Message, error)
	Ack(ctx context.Context, msg *broker.Message) error
	Nack(ctx context.Context, msg *broker.Message, cause error) error
	ExtendLease(ctx context.Context, msg *broker.Message) error
}

// Stage handles deliveries from one topic.
type Stage interface {
	Name() string
	Topic() string
	Handle(ctx context.Context, msg *broker.Message) error
}

type laneState struct {
	name    string
	topic   string
	stage   Stage
	workers int
	logger  *slog.Logger

	processed atomic.Int64
	retried   atomic.Int64
	busy      atomic.Int64
}
