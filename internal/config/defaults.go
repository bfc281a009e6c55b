package config

const (
	defaultConfigPath               = "~/.config/booksum/config.toml"
	defaultDataDir                  = "~/.local/share/booksum"
	defaultLogDir                   = "~/.local/share/booksum/logs"
	defaultMetricsBind              = "127.0.0.1:9464"
	defaultStoreDriver              = "sqlite"
	defaultBrokerVisibilityTimeout  = 120
	defaultBrokerRetryDelay         = 10
	defaultBrokerMaxDeliveries      = 5
	defaultBrokerPollInterval       = 2
	defaultUserAgent                = "booksum/dev (+https://github.com/IyadElwy/AiBookSummarizer)"
	defaultISBNdbPlan               = "basic"
	defaultOpenLibraryBaseURL       = "https://openlibrary.org"
	defaultGoodreadsBaseURL         = "https://www.goodreads.com"
	defaultProviderTimeout          = 30
	defaultSimilarityMethod         = "sequence"
	defaultGenerationBackend        = "ollama"
	defaultOllamaHost               = "http://localhost:11434"
	defaultOpenAIBaseURL            = "https://api.openai.com/v1"
	defaultGenerationTimeout        = 1000
	defaultGenerationPrompt         = "Write a clear and engaging summary of the following book based on the collected metadata."
	defaultWorkerName               = "default"
	defaultWorkerConcurrency        = 1
	defaultWorkerErrorRetryInterval = 10
	defaultWorkerHeartbeatInterval  = 15
	defaultLivenessFile             = "~/.local/share/booksum/heartbeat"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

var defaultProviders = []string{"isbndb", "openlibrary", "goodreads"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			MetricsBind: defaultMetricsBind,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Broker: Broker{
			VisibilityTimeout: defaultBrokerVisibilityTimeout,
			RetryDelay:        defaultBrokerRetryDelay,
			MaxDeliveries:     defaultBrokerMaxDeliveries,
			PollInterval:      defaultBrokerPollInterval,
		},
		Providers: Providers{
			Enabled:            append([]string(nil), defaultProviders...),
			UserAgent:          defaultUserAgent,
			ISBNdbPlan:         defaultISBNdbPlan,
			OpenLibraryBaseURL: defaultOpenLibraryBaseURL,
			GoodreadsBaseURL:   defaultGoodreadsBaseURL,
		},
		Aggregate: Aggregate{
			ProviderTimeout:  defaultProviderTimeout,
			SimilarityMethod: defaultSimilarityMethod,
		},
		Generation: Generation{
			Backend:        defaultGenerationBackend,
			OllamaHost:     defaultOllamaHost,
			OpenAIBaseURL:  defaultOpenAIBaseURL,
			TimeoutSeconds: defaultGenerationTimeout,
			Prompt:         defaultGenerationPrompt,
		},
		Workers: Workers{
			Name:                defaultWorkerName,
			FetchConcurrency:    defaultWorkerConcurrency,
			GenerateConcurrency: defaultWorkerConcurrency,
			ErrorRetryInterval:  defaultWorkerErrorRetryInterval,
			HeartbeatInterval:   defaultWorkerHeartbeatInterval,
			LivenessFile:        defaultLivenessFile,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
