package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeProviders()
	c.normalizeAggregate()
	c.normalizeGeneration()
	if err := c.normalizeWorkers(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.MetricsBind = strings.TrimSpace(c.Paths.MetricsBind)
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.PostgresDSN = envOverride(c.Store.PostgresDSN, "DATABASE_URL")
}

func (c *Config) normalizeProviders() {
	enabled := make([]string, 0, len(c.Providers.Enabled))
	seen := make(map[string]struct{}, len(c.Providers.Enabled))
	for _, name := range c.Providers.Enabled {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		enabled = append(enabled, name)
	}
	c.Providers.Enabled = enabled

	c.Providers.ISBNdbAPIKey = envOverride(c.Providers.ISBNdbAPIKey, "ISBNDB_API_KEY")
	c.Providers.ISBNdbPlan = strings.ToLower(strings.TrimSpace(c.Providers.ISBNdbPlan))
	if c.Providers.ISBNdbPlan == "" {
		c.Providers.ISBNdbPlan = defaultISBNdbPlan
	}
	c.Providers.ISBNdbBaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.ISBNdbBaseURL), "/")
	c.Providers.OpenLibraryBaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.OpenLibraryBaseURL), "/")
	if c.Providers.OpenLibraryBaseURL == "" {
		c.Providers.OpenLibraryBaseURL = defaultOpenLibraryBaseURL
	}
	c.Providers.GoodreadsBaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.GoodreadsBaseURL), "/")
	if c.Providers.GoodreadsBaseURL == "" {
		c.Providers.GoodreadsBaseURL = defaultGoodreadsBaseURL
	}
	c.Providers.UserAgent = strings.TrimSpace(c.Providers.UserAgent)
	if c.Providers.UserAgent == "" {
		c.Providers.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeAggregate() {
	c.Aggregate.SimilarityMethod = strings.ToLower(strings.TrimSpace(c.Aggregate.SimilarityMethod))
	if c.Aggregate.SimilarityMethod == "" {
		c.Aggregate.SimilarityMethod = defaultSimilarityMethod
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.Backend = strings.ToLower(strings.TrimSpace(c.Generation.Backend))
	if c.Generation.Backend == "" {
		c.Generation.Backend = defaultGenerationBackend
	}
	c.Generation.OllamaHost = strings.TrimRight(envOverride(c.Generation.OllamaHost, "OLLAMA_HOST"), "/")
	if c.Generation.OllamaHost == "" {
		c.Generation.OllamaHost = defaultOllamaHost
	}
	c.Generation.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Generation.OpenAIBaseURL), "/")
	c.Generation.OpenAIAPIKey = envOverride(c.Generation.OpenAIAPIKey, "OPENAI_API_KEY")
	c.Generation.GeminiAPIKey = envOverride(c.Generation.GeminiAPIKey, "GEMINI_API_KEY")
	c.Generation.ModelOverride = strings.TrimSpace(c.Generation.ModelOverride)
	c.Generation.Prompt = strings.TrimSpace(c.Generation.Prompt)
	if c.Generation.Prompt == "" {
		c.Generation.Prompt = defaultGenerationPrompt
	}
}

func (c *Config) normalizeWorkers() error {
	c.Workers.Name = strings.TrimSpace(c.Workers.Name)
	if c.Workers.Name == "" {
		c.Workers.Name = defaultWorkerName
	}
	var err error
	if c.Workers.LivenessFile, err = expandPath(strings.TrimSpace(c.Workers.LivenessFile)); err != nil {
		return fmt.Errorf("workers.liveness_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envOverride prefers a non-empty environment variable over the file value.
func envOverride(current, name string) string {
	if value, ok := os.LookupEnv(name); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(current)
}
