package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IyadElwy/AiBookSummarizer/internal/providers"
	"github.com/IyadElwy/AiBookSummarizer/internal/scoring"
	"github.com/IyadElwy/AiBookSummarizer/internal/similarity"
	"github.com/IyadElwy/AiBookSummarizer/internal/testsupport"
)

func TestCoverageBucketBoundaries(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 10}, {249, 10}, {250, 25}, {499, 25}, {500, 50},
		{999, 50}, {1000, 75}, {1999, 75}, {2000, 100}, {5000, 100},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, scoring.CoverageBucket(testsupport.RepeatText("ab", tc.length)), "length %d", tc.length)
	}
}

func TestCoverageBucketCountsCharacters(t *testing.T) {
	// 250 two-byte runes are 500 bytes but only 250 characters.
	assert.Equal(t, 25, scoring.CoverageBucket(testsupport.RepeatText("é", 250)))
}

func TestReliabilityDividesByIncludedCount(t *testing.T) {
	sources := []scoring.Source{
		{Kind: providers.KindISBNdb, Text: "a"},
		{Kind: providers.KindOpenLibrary, Text: "b"},
	}
	assert.Equal(t, 80, scoring.Reliability(sources))

	sources = append(sources, scoring.Source{Kind: providers.KindGoodreads, Text: "c"})
	assert.Equal(t, 80, scoring.Reliability(sources))

	assert.Equal(t, 70, scoring.Reliability([]scoring.Source{{Kind: providers.KindOpenLibrary}}))
}

func TestScoreSingleSource(t *testing.T) {
	conf, err := scoring.Score([]scoring.Source{
		{Kind: providers.KindISBNdb, Text: testsupport.RepeatText("x", 600)},
	}, similarity.Sequence)
	require.NoError(t, err)
	assert.Equal(t, scoring.Confidence{
		SourceReliability: 90,
		ContentCoverage:   50,
		CrossReference:    100,
		Composite:         80,
	}, conf)
}

func TestScoreThreeSources(t *testing.T) {
	text := testsupport.RepeatText("effective java ", 1200)
	conf, err := scoring.Score([]scoring.Source{
		{Kind: providers.KindISBNdb, Text: text},
		{Kind: providers.KindOpenLibrary, Text: text},
		{Kind: providers.KindGoodreads, Text: testsupport.RepeatText("z", 100)},
	}, similarity.Jaccard)
	require.NoError(t, err)
	assert.Equal(t, 80, conf.SourceReliability)
	assert.Equal(t, (75+75+10)/3, conf.ContentCoverage)
	assert.GreaterOrEqual(t, conf.CrossReference, 0)
	assert.LessOrEqual(t, conf.CrossReference, 100)
	assert.Equal(t, (conf.SourceReliability+conf.ContentCoverage+conf.CrossReference)/3, conf.Composite)
}

func TestScoreRejectsEmpty(t *testing.T) {
	_, err := scoring.Score(nil, similarity.Sequence)
	require.ErrorIs(t, err, scoring.ErrNoSources)
}
