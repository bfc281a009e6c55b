// Package scoring computes the confidence metrics stored with an aggregated
// document. Scores are advisory; nothing in the pipeline gates on them.
package scoring

import (
	"errors"
	"unicode/utf8"

	"github.com/IyadElwy/AiBookSummarizer/internal/providers"
	"github.com/IyadElwy/AiBookSummarizer/internal/similarity"
)

// ErrNoSources is returned when Score is called with nothing to score.
var ErrNoSources = errors.New("no sources to score")

var reliabilityWeights = map[providers.Kind]int{
	providers.KindISBNdb:      90,
	providers.KindGoodreads:   80,
	providers.KindOpenLibrary: 70,
}

// Weight returns the fixed reliability weight for a provider, or 0 when unknown.
func Weight(kind providers.Kind) int {
	return reliabilityWeights[kind]
}

// Source is one included source text.
type Source struct {
	Kind providers.Kind
	Text string
}

// Confidence holds the four document metrics, each in [0,100].
type Confidence struct {
	SourceReliability int
	ContentCoverage   int
	CrossReference    int
	Composite         int
}

// CoverageBucket maps a text's length in characters to a coverage score.
func CoverageBucket(text string) int {
	n := utf8.RuneCountInString(text)
	switch {
	case n >= 2000:
		return 100
	case n >= 1000:
		return 75
	case n >= 500:
		return 50
	case n >= 250:
		return 25
	default:
		return 10
	}
}

// Reliability is the floored mean weight of the included sources.
func Reliability(sources []Source) int {
	if len(sources) == 0 {
		return 0
	}
	sum := 0
	for _, src := range sources {
		sum += Weight(src.Kind)
	}
	return sum / len(sources)
}

// Coverage is the floored mean coverage bucket of the included sources.
func Coverage(sources []Source) int {
	if len(sources) == 0 {
		return 0
	}
	sum := 0
	for _, src := range sources {
		sum += CoverageBucket(src.Text)
	}
	return sum / len(sources)
}

// Score computes all metrics for the included sources.
func Score(sources []Source, method similarity.Method) (Confidence, error) {
	if len(sources) == 0 {
		return Confidence{}, ErrNoSources
	}
	texts := make([]string, 0, len(sources))
	for _, src := range sources {
		texts = append(texts, src.Text)
	}
	c := Confidence{
		SourceReliability: Reliability(sources),
		ContentCoverage:   Coverage(sources),
		CrossReference:    similarity.CrossReference(method, texts),
	}
	c.Composite = (c.SourceReliability + c.ContentCoverage + c.CrossReference) / 3
	return c, nil
}
