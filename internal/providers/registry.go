package providers

import (
	"github.com/IyadElwy/AiBookSummarizer/internal/config"
)

// FromConfig builds the enabled providers in aggregation order.
func FromConfig(cfg *config.Config, opts ...Option) []Provider {
	opts = append([]Option{WithUserAgent(cfg.Providers.UserAgent)}, opts...)
	var out []Provider
	for _, kind := range Kinds() {
		if !cfg.ProviderEnabled(string(kind)) {
			continue
		}
		switch kind {
		case KindISBNdb:
			out = append(out, NewISBNdb(cfg.Providers.ISBNdbAPIKey, Plan(cfg.Providers.ISBNdbPlan), cfg.Providers.ISBNdbBaseURL, opts...))
		case KindOpenLibrary:
			out = append(out, NewOpenLibrary(cfg.Providers.OpenLibraryBaseURL, opts...))
		case KindGoodreads:
			out = append(out, NewGoodreads(cfg.Providers.GoodreadsBaseURL, opts...))
		}
	}
	return out
}
