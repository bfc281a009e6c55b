package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/config"
)

var (
	// ErrGenerationFailed marks every summary failure.
	ErrGenerationFailed = errors.New("summary generation failed")
	// ErrSummaryTooShort is returned alongside ErrGenerationFailed for summaries under MinSummaryChars.
	ErrSummaryTooShort = errors.New("summary too short")
)

// MinSummaryChars is the shortest summary accepted.
const MinSummaryChars = 50

// Request is one backend call.
type Request struct {
	Model      string
	Prompt     string
	CharBudget int
}

// Backend produces raw summary text.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Sampling values shared by the backends.
const (
	temperature = 0.7
	topP        = 0.9
)

// maxTokens derives the token cap from the character budget.
func maxTokens(chars int) int {
	return max(chars/3, 500)
}

// NewBackend builds the configured backend.
func NewBackend(cfg *config.Config) (Backend, error) {
	g := cfg.Generation
	timeout := time.Duration(g.TimeoutSeconds) * time.Second
	switch g.Backend {
	case "", "ollama":
		return NewOllama(g.OllamaHost, WithTimeout(timeout)), nil
	case "openai":
		return NewOpenAI(g.OpenAIBaseURL, g.OpenAIAPIKey)
	case "gemini":
		return NewGemini(g.GeminiAPIKey)
	default:
		return nil, fmt.Errorf("unknown generation backend %q", g.Backend)
	}
}
