package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/IyadElwy/AiBookSummarizer/internal/config"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"ISBNDB_API_KEY", "OLLAMA_HOST", "OPENAI_API_KEY", "GEMINI_API_KEY", "DATABASE_URL"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ISBNDB_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "booksum")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.JobsDBPath() != filepath.Join(wantData, "jobs.db") {
		t.Fatalf("unexpected jobs db path: %q", cfg.JobsDBPath())
	}
	if cfg.BrokerDBPath() != filepath.Join(wantData, "broker.db") {
		t.Fatalf("unexpected broker db path: %q", cfg.BrokerDBPath())
	}
	if cfg.LockPath() != filepath.Join(wantData, "booksumd-default.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.Providers.ISBNdbAPIKey != "test-key" {
		t.Fatalf("expected ISBNdb key from env, got %q", cfg.Providers.ISBNdbAPIKey)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("expected sqlite store by default, got %q", cfg.Store.Driver)
	}
	if cfg.Generation.Backend != "ollama" {
		t.Fatalf("expected ollama backend by default, got %q", cfg.Generation.Backend)
	}
	if cfg.Aggregate.SimilarityMethod != "sequence" {
		t.Fatalf("expected sequence similarity by default, got %q", cfg.Aggregate.SimilarityMethod)
	}
	for _, name := range []string{"isbndb", "openlibrary", "goodreads"} {
		if !cfg.ProviderEnabled(name) {
			t.Fatalf("expected provider %s enabled by default", name)
		}
	}
	if cfg.ProviderTimeout().Seconds() != 30 {
		t.Fatalf("unexpected provider timeout: %v", cfg.ProviderTimeout())
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "booksum.toml")

	type payload struct {
		Providers struct {
			Enabled    []string `toml:"enabled"`
			ISBNdbPlan string   `toml:"isbndb_plan"`
		} `toml:"providers"`
		Aggregate struct {
			SimilarityMethod string `toml:"similarity_method"`
		} `toml:"aggregate"`
		Workers struct {
			Name              string `toml:"name"`
			HeartbeatInterval int    `toml:"heartbeat_interval"`
		} `toml:"workers"`
	}
	custom := payload{}
	custom.Providers.Enabled = []string{" OpenLibrary ", "goodreads", "openlibrary"}
	custom.Providers.ISBNdbPlan = "PRO"
	custom.Aggregate.SimilarityMethod = "Jaccard"
	custom.Workers.Name = "night"
	custom.Workers.HeartbeatInterval = 20
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if got := strings.Join(cfg.Providers.Enabled, ","); got != "openlibrary,goodreads" {
		t.Fatalf("expected normalized provider list, got %q", got)
	}
	if cfg.ProviderEnabled("isbndb") {
		t.Fatal("expected isbndb disabled")
	}
	if cfg.Providers.ISBNdbPlan != "pro" {
		t.Fatalf("expected lower-cased plan, got %q", cfg.Providers.ISBNdbPlan)
	}
	if cfg.Aggregate.SimilarityMethod != "jaccard" {
		t.Fatalf("expected jaccard similarity, got %q", cfg.Aggregate.SimilarityMethod)
	}
	if cfg.Workers.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workers.HeartbeatInterval)
	}
	if !strings.HasSuffix(cfg.LockPath(), "booksumd-night.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "booksum.toml")

	type payload struct {
		Providers struct {
			ISBNdbAPIKey string `toml:"isbndb_api_key"`
		} `toml:"providers"`
		Generation struct {
			OllamaHost   string `toml:"ollama_host"`
			OpenAIAPIKey string `toml:"openai_api_key"`
			GeminiAPIKey string `toml:"gemini_api_key"`
		} `toml:"generation"`
	}
	custom := payload{}
	custom.Providers.ISBNdbAPIKey = "file-isbndb"
	custom.Generation.OllamaHost = "http://file-host:11434"
	custom.Generation.OpenAIAPIKey = "file-openai"
	custom.Generation.GeminiAPIKey = "file-gemini"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("ISBNDB_API_KEY", "env-isbndb")
	t.Setenv("OLLAMA_HOST", "http://env-host:11434/")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("DATABASE_URL", "")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Providers.ISBNdbAPIKey != "env-isbndb" {
		t.Errorf("expected ISBNdb key from env, got %q", cfg.Providers.ISBNdbAPIKey)
	}
	if cfg.Generation.OllamaHost != "http://env-host:11434" {
		t.Errorf("expected Ollama host from env, got %q", cfg.Generation.OllamaHost)
	}
	if cfg.Generation.OpenAIAPIKey != "env-openai" {
		t.Errorf("expected OpenAI key from env, got %q", cfg.Generation.OpenAIAPIKey)
	}
	if cfg.Generation.GeminiAPIKey != "env-gemini" {
		t.Errorf("expected Gemini key from env, got %q", cfg.Generation.GeminiAPIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[generation]") {
		t.Fatalf("sample config missing generation section: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Broker.MaxDeliveries != config.Default().Broker.MaxDeliveries {
		t.Fatalf("sample max_deliveries drifted from default: %d", cfg.Broker.MaxDeliveries)
	}
	if !strings.Contains(cfg.Paths.DataDir, "booksum") {
		t.Fatalf("expected data dir to contain booksum, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"unknown provider", func(c *config.Config) { c.Providers.Enabled = []string{"amazon"} }, "unknown provider"},
		{"no providers", func(c *config.Config) { c.Providers.Enabled = nil }, "at least one provider"},
		{"bad plan", func(c *config.Config) { c.Providers.ISBNdbPlan = "gold" }, "providers.isbndb_plan"},
		{"bad similarity", func(c *config.Config) { c.Aggregate.SimilarityMethod = "cosine" }, "aggregate.similarity_method"},
		{"zero provider timeout", func(c *config.Config) { c.Aggregate.ProviderTimeout = 0 }, "aggregate.provider_timeout"},
		{"bad backend", func(c *config.Config) { c.Generation.Backend = "claude" }, "generation.backend"},
		{"openai without key", func(c *config.Config) { c.Generation.Backend = "openai" }, "generation.openai_api_key"},
		{"gemini without key", func(c *config.Config) { c.Generation.Backend = "gemini" }, "generation.gemini_api_key"},
		{"gemini without model", func(c *config.Config) {
			c.Generation.Backend = "gemini"
			c.Generation.GeminiAPIKey = "k"
		}, "generation.model_override"},
		{"postgres without dsn", func(c *config.Config) { c.Store.Driver = "postgres" }, "store.postgres_dsn"},
		{"bad store driver", func(c *config.Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"zero deliveries", func(c *config.Config) { c.Broker.MaxDeliveries = 0 }, "broker.max_deliveries"},
		{"negative retry delay", func(c *config.Config) { c.Broker.RetryDelay = -1 }, "broker.retry_delay"},
		{"heartbeat past visibility", func(c *config.Config) { c.Workers.HeartbeatInterval = c.Broker.VisibilityTimeout }, "workers.heartbeat_interval"},
		{"zero concurrency", func(c *config.Config) { c.Workers.FetchConcurrency = 0 }, "workers.fetch_concurrency"},
		{"bad metrics bind", func(c *config.Config) { c.Paths.MetricsBind = "localhost" }, "paths.metrics_bind"},
		{"relative base url", func(c *config.Config) { c.Providers.GoodreadsBaseURL = "goodreads.com" }, "providers.goodreads_base_url"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.DataDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
