package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"sort"
	"strings"
)

var (
	knownProviders   = []string{"isbndb", "openlibrary", "goodreads"}
	knownPlans       = []string{"basic", "premium", "pro"}
	knownSimilarity  = []string{"sequence", "levenshtein", "jaccard", "combined"}
	knownBackends    = []string{"ollama", "openai", "gemini"}
	knownStoreDriver = []string{"sqlite", "postgres"}
	knownLogFormats  = []string{"console", "json"}
	knownLogLevels   = []string{"debug", "info", "warn", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateBroker(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateAggregate(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.MetricsBind != "" {
		if _, _, err := net.SplitHostPort(c.Paths.MetricsBind); err != nil {
			return fmt.Errorf("paths.metrics_bind must be host:port: %w", err)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if !slices.Contains(knownStoreDriver, c.Store.Driver) {
		return fmt.Errorf("store.driver must be one of %s", strings.Join(knownStoreDriver, ", "))
	}
	if c.Store.Driver == "postgres" && c.Store.PostgresDSN == "" {
		return errors.New("store.postgres_dsn must be set when store.driver is postgres (or set DATABASE_URL)")
	}
	return nil
}

func (c *Config) validateBroker() error {
	if err := ensurePositiveMap(map[string]int{
		"broker.visibility_timeout": c.Broker.VisibilityTimeout,
		"broker.max_deliveries":     c.Broker.MaxDeliveries,
		"broker.poll_interval":      c.Broker.PollInterval,
	}); err != nil {
		return err
	}
	if c.Broker.RetryDelay < 0 {
		return errors.New("broker.retry_delay must be >= 0")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.Providers.Enabled) == 0 {
		return errors.New("providers.enabled must include at least one provider")
	}
	for _, name := range c.Providers.Enabled {
		if !slices.Contains(knownProviders, name) {
			return fmt.Errorf("providers.enabled: unknown provider %q (known: %s)", name, strings.Join(knownProviders, ", "))
		}
	}
	if !slices.Contains(knownPlans, c.Providers.ISBNdbPlan) {
		return fmt.Errorf("providers.isbndb_plan must be one of %s", strings.Join(knownPlans, ", "))
	}
	for key, value := range map[string]string{
		"providers.isbndb_base_url":      c.Providers.ISBNdbBaseURL,
		"providers.openlibrary_base_url": c.Providers.OpenLibraryBaseURL,
		"providers.goodreads_base_url":   c.Providers.GoodreadsBaseURL,
	} {
		if err := validateURL(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAggregate() error {
	if c.Aggregate.ProviderTimeout <= 0 {
		return errors.New("aggregate.provider_timeout must be positive (seconds)")
	}
	if !slices.Contains(knownSimilarity, c.Aggregate.SimilarityMethod) {
		return fmt.Errorf("aggregate.similarity_method must be one of %s", strings.Join(knownSimilarity, ", "))
	}
	return nil
}

func (c *Config) validateGeneration() error {
	g := c.Generation
	if !slices.Contains(knownBackends, g.Backend) {
		return fmt.Errorf("generation.backend must be one of %s", strings.Join(knownBackends, ", "))
	}
	if g.TimeoutSeconds <= 0 {
		return errors.New("generation.timeout_seconds must be positive")
	}
	switch g.Backend {
	case "ollama":
		if err := validateURL("generation.ollama_host", g.OllamaHost); err != nil {
			return err
		}
	case "openai":
		if g.OpenAIAPIKey == "" {
			return errors.New("generation.openai_api_key must be set when generation.backend is openai (or set OPENAI_API_KEY)")
		}
		if err := validateURL("generation.openai_base_url", g.OpenAIBaseURL); err != nil {
			return err
		}
	case "gemini":
		if g.GeminiAPIKey == "" {
			return errors.New("generation.gemini_api_key must be set when generation.backend is gemini (or set GEMINI_API_KEY)")
		}
		if strings.TrimSpace(g.ModelOverride) == "" {
			return errors.New("generation.model_override must name a Gemini model when generation.backend is gemini")
		}
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"workers.fetch_concurrency":    c.Workers.FetchConcurrency,
		"workers.generate_concurrency": c.Workers.GenerateConcurrency,
		"workers.error_retry_interval": c.Workers.ErrorRetryInterval,
		"workers.heartbeat_interval":   c.Workers.HeartbeatInterval,
	}); err != nil {
		return err
	}
	if c.Workers.HeartbeatInterval >= c.Broker.VisibilityTimeout {
		return errors.New("workers.heartbeat_interval must be less than broker.visibility_timeout")
	}
	if strings.ContainsAny(c.Workers.Name, `/\`) {
		return errors.New("workers.name must not contain path separators")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(knownLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s", strings.Join(knownLogFormats, ", "))
	}
	if !slices.Contains(knownLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s", strings.Join(knownLogLevels, ", "))
	}
	return nil
}

func validateURL(key, value string) error {
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
