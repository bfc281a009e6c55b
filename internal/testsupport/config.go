package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/IyadElwy/AiBookSummarizer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Provider endpoints point nowhere until a test overrides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.MetricsBind = "127.0.0.1:0"
	cfgVal.Workers.LivenessFile = filepath.Join(base, "data", "heartbeat")
	cfgVal.Providers.ISBNdbAPIKey = "test"
	cfgVal.Broker.RetryDelay = 0
	cfgVal.Broker.PollInterval = 1

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithProviderURLs points the three metadata providers at test servers.
func WithProviderURLs(isbndb, openlibrary, goodreads string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Providers.ISBNdbBaseURL = isbndb
		b.cfg.Providers.OpenLibraryBaseURL = openlibrary
		b.cfg.Providers.GoodreadsBaseURL = goodreads
	}
}

// WithOllamaHost points the default generation backend at a test server.
func WithOllamaHost(host string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.OllamaHost = host
	}
}

// WithProviders restricts the enabled provider list.
func WithProviders(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Providers.Enabled = append([]string(nil), names...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
