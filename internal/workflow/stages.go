package workflow

import (
	"context"
	"fmt"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
)

// FetchHandler is the part of the coordinator the fetch lane drives.
type FetchHandler interface {
	HandleFetch(ctx context.Context, req broker.FetchRequest) error
}

// GenerateHandler is the part of the coordinator the generate lane drives.
type GenerateHandler interface {
	HandleGenerate(ctx context.Context, req broker.GenerateRequest) error
}

type fetchStage struct{ handler FetchHandler }

// NewFetchStage decodes fetch deliveries and hands them to handler.
func NewFetchStage(handler FetchHandler) Stage { return fetchStage{handler: handler} }

func (fetchStage) Name() string  { return pipeline.StageFetch }
func (fetchStage) Topic() string { return broker.TopicFetch }

func (s fetchStage) Handle(ctx context.Context, msg *broker.Message) error {
	var req broker.FetchRequest
	if err := msg.Decode(&req); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInvalidMessage, err)
	}
	if req.ID <= 0 {
		return fmt.Errorf("%w: fetch message %d has no job id", pipeline.ErrInvalidMessage, msg.ID)
	}
	return s.handler.HandleFetch(ctx, req)
}

type generateStage struct{ handler GenerateHandler }

// NewGenerateStage decodes generate deliveries and hands them to handler.
func NewGenerateStage(handler GenerateHandler) Stage { return generateStage{handler: handler} }

func (generateStage) Name() string  { return pipeline.StageGenerate }
func (generateStage) Topic() string { return broker.TopicGenerate }

func (s generateStage) Handle(ctx context.Context, msg *broker.Message) error {
	var req broker.GenerateRequest
	if err := msg.Decode(&req); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInvalidMessage, err)
	}
	if req.ID <= 0 {
		return fmt.Errorf("%w: generate message %d has no job id", pipeline.ErrInvalidMessage, msg.ID)
	}
	return s.handler.HandleGenerate(ctx, req)
}
