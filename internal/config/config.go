package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	MetricsBind string `toml:"metrics_bind"`
}

// Store selects the job record backend.
type Store struct {
	Driver      string `toml:"driver"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// Broker contains message delivery settings. Durations are in seconds.
type Broker struct {
	VisibilityTimeout int `toml:"visibility_timeout"`
	RetryDelay        int `toml:"retry_delay"`
	MaxDeliveries     int `toml:"max_deliveries"`
	PollInterval      int `toml:"poll_interval"`
}

// Providers contains credentials and endpoints for the metadata sources.
type Providers struct {
	Enabled            []string `toml:"enabled"`
	UserAgent          string   `toml:"user_agent"`
	ISBNdbAPIKey       string   `toml:"isbndb_api_key"`
	ISBNdbPlan         string   `toml:"isbndb_plan"`
	ISBNdbBaseURL      string   `toml:"isbndb_base_url"`
	OpenLibraryBaseURL string   `toml:"openlibrary_base_url"`
	GoodreadsBaseURL   string   `toml:"goodreads_base_url"`
}

// Aggregate contains source aggregation and scoring settings.
type Aggregate struct {
	ProviderTimeout  int    `toml:"provider_timeout"`
	SimilarityMethod string `toml:"similarity_method"`
}

// Generation contains text generation backend settings.
type Generation struct {
	Backend        string `toml:"backend"`
	OllamaHost     string `toml:"ollama_host"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	ModelOverride  string `toml:"model_override"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Prompt         string `toml:"prompt"`
}

// Workers contains daemon lane and liveness settings. Intervals are in seconds.
type Workers struct {
	Name                string `toml:"name"`
	FetchConcurrency    int    `toml:"fetch_concurrency"`
	GenerateConcurrency int    `toml:"generate_concurrency"`
	ErrorRetryInterval  int    `toml:"error_retry_interval"`
	HeartbeatInterval   int    `toml:"heartbeat_interval"`
	LivenessFile        string `toml:"liveness_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for booksum.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, metrics bind address
//   - Store: job record backend (sqlite or postgres)
//   - Broker: lease, redelivery and polling for queue messages
//   - Providers: ISBNdb, OpenLibrary and Goodreads access
//   - Aggregate: per-provider timeout and similarity method
//   - Generation: summary backend (ollama, openai, gemini)
//   - Workers: lane concurrency, retry and liveness timing
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Store      Store      `toml:"store"`
	Broker     Broker     `toml:"broker"`
	Providers  Providers  `toml:"providers"`
	Aggregate  Aggregate  `toml:"aggregate"`
	Generation Generation `toml:"generation"`
	Workers    Workers    `toml:"workers"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("booksum.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Workers.LivenessFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.Workers.LivenessFile), 0o755); err != nil {
			return fmt.Errorf("create liveness directory: %w", err)
		}
	}
	return nil
}

// JobsDBPath returns the SQLite database file for job records.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// BrokerDBPath returns the SQLite database file backing the message broker.
func (c *Config) BrokerDBPath() string {
	return filepath.Join(c.Paths.DataDir, "broker.db")
}

// LockPath returns the daemon lock file for the configured worker name.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, fmt.Sprintf("booksumd-%s.lock", c.Workers.Name))
}

// ProviderTimeout returns the per-provider fetch timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Aggregate.ProviderTimeout) * time.Second
}

// GenerationTimeout returns the bounded timeout for a single generation call.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}

// ProviderEnabled reports whether the named provider kind is enabled.
func (c *Config) ProviderEnabled(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, enabled := range c.Providers.Enabled {
		if enabled == name {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
