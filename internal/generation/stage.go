package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
)

// StageOptions tune a Stage.
type StageOptions struct {
	Instruction   string
	Timeout       time.Duration
	ModelOverride string
	Metrics       *metrics.Collector
	Logger        *slog.Logger
}

// StageOptionsFromConfig maps generation config onto StageOptions.
func StageOptionsFromConfig(cfg *config.Config) StageOptions {
	return StageOptions{
		Instruction:   cfg.Generation.Prompt,
		Timeout:       cfg.GenerationTimeout(),
		ModelOverride: cfg.Generation.ModelOverride,
	}
}

// Stage produces one summary per document.
type Stage struct {
	backend Backend
	opts    StageOptions
	logger  *slog.Logger
}

// NewStage wires a backend.
func NewStage(backend Backend, opts StageOptions) *Stage {
	if opts.Timeout <= 0 {
		opts.Timeout = 1000 * time.Second
	}
	if strings.TrimSpace(opts.Instruction) == "" {
		opts.Instruction = "Write a clear and engaging summary of the following book based on the collected metadata."
	}
	return &Stage{
		backend: backend,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "generation"),
	}
}

// Generate summarizes doc in its requested language and length.
func (s *Stage) Generate(ctx context.Context, doc *jobs.Document) (string, error) {
	model, err := ParseModel(doc.Model)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	lang, err := ParseLanguage(doc.Language)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	backendModel := model.BaseModel()
	if override := strings.TrimSpace(s.opts.ModelOverride); override != "" {
		backendModel = override
	}
	req := Request{
		Model:      backendModel,
		Prompt:     BuildPrompt(s.opts.Instruction, lang.DisplayName(), model.CharBudget(), JoinSources(doc.Sources)),
		CharBudget: model.CharBudget(),
	}

	logger := logging.WithContext(ctx, s.logger)
	logger.Info("generating summary",
		logging.String(logging.FieldEventType, "generation_start"),
		logging.String("backend", s.backend.Name()),
		logging.String("model", backendModel),
		logging.String("language", string(lang)),
		logging.Int("char_budget", req.CharBudget),
		logging.Int("prompt_chars", utf8.RuneCountInString(req.Prompt)),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	start := time.Now()
	raw, err := s.backend.Generate(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGenerationFailed, s.backend.Name(), err)
	}

	summary := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(summary)
	if length < MinSummaryChars {
		return "", fmt.Errorf("%w: %w (%d characters)", ErrGenerationFailed, ErrSummaryTooShort, length)
	}
	s.opts.Metrics.SummaryLength(length)
	logger.Info("summary generated",
		logging.String(logging.FieldEventType, "generation_complete"),
		logging.Int("chars", length),
		logging.Duration("duration", time.Since(start)),
	)
	return summary, nil
}
