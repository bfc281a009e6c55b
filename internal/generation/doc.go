// Package generation turns an aggregated document into a summary.
//
// Stage builds one prompt from the document's source texts, the target
// language's display name and the model's character budget, then calls a
// single Backend once under the configured timeout. There is no internal
// retry: a failed or too-short summary is final for the job and surfaces as
// an error wrapping ErrGenerationFailed.
//
// Backends:
//   - ollama: POST /api/generate on a local or remote Ollama host
//   - openai: chat completions on any OpenAI-compatible endpoint
//   - gemini: Google Gemini through generative-ai-go
package generation
