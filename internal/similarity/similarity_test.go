package similarity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IyadElwy/AiBookSummarizer/internal/similarity"
)

func TestRatioBounds(t *testing.T) {
	for _, method := range similarity.Methods() {
		t.Run(string(method), func(t *testing.T) {
			assert.InDelta(t, 1.0, similarity.Ratio(method, "Effective Java", "Effective Java"), 1e-9)
			assert.InDelta(t, 1.0, similarity.Ratio(method, "", ""), 1e-9)
			assert.InDelta(t, 0.0, similarity.Ratio(method, "", "something"), 1e-9)
			assert.InDelta(t, 0.0, similarity.Ratio(method, "abc", ""), 1e-9)

			r := similarity.Ratio(method, "The Pragmatic Programmer", "Clean Code")
			assert.GreaterOrEqual(t, r, 0.0)
			assert.LessOrEqual(t, r, 1.0)
		})
	}
}

func TestSequenceRatio(t *testing.T) {
	// "abcd" vs "bcde": matching block "bcd" (3), total 8.
	assert.InDelta(t, 0.75, similarity.Ratio(similarity.Sequence, "abcd", "bcde"), 1e-9)
	assert.InDelta(t, 0.0, similarity.Ratio(similarity.Sequence, "aaaa", "bbbb"), 1e-9)
	assert.Less(t, similarity.Ratio(similarity.Sequence, "ABC", "abc"), 1.0, "sequence is case sensitive")
}

func TestLevenshteinRatio(t *testing.T) {
	// kitten -> sitting is three edits over seven characters.
	assert.InDelta(t, 1-3.0/7.0, similarity.Ratio(similarity.Levenshtein, "kitten", "sitting"), 1e-9)
	assert.InDelta(t, 1.0, similarity.Ratio(similarity.Levenshtein, "ABC", "abc"), 1e-9)
}

func TestJaccardRatio(t *testing.T) {
	// {ab, bc} vs {bc, cd}: one shared of three.
	assert.InDelta(t, 1.0/3.0, similarity.Ratio(similarity.Jaccard, "abc", "bcd"), 1e-9)
	assert.InDelta(t, 1.0, similarity.Ratio(similarity.Jaccard, "a", "A"), 1e-9)
	assert.InDelta(t, 0.0, similarity.Ratio(similarity.Jaccard, "a", "ab"), 1e-9)
}

func TestCombinedIsMean(t *testing.T) {
	a, b := "Effective Java, Third Edition", "Effective Java (3rd ed.)"
	want := (similarity.Ratio(similarity.Sequence, a, b) +
		similarity.Ratio(similarity.Levenshtein, a, b) +
		similarity.Ratio(similarity.Jaccard, a, b)) / 3
	assert.InDelta(t, want, similarity.Ratio(similarity.Combined, a, b), 1e-9)
}

func TestCrossReference(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  int
	}{
		{"no texts", nil, 100},
		{"single text", []string{"only one"}, 100},
		{"identical pair", []string{"same", "same"}, 100},
		{"disjoint pair", []string{"aaaa", "bbbb"}, 0},
		{"empty pair", []string{"", ""}, 100},
		{"one empty", []string{"", "text"}, 0},
		// pairs: (abcd,bcde)=0.75 (abcd,abcd)=1 (bcde,abcd)=0.75 -> mean 0.8333
		{"three texts", []string{"abcd", "bcde", "abcd"}, 83},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, similarity.CrossReference(similarity.Sequence, tc.texts))
		})
	}
}

func TestSequenceRatioOnLongProse(t *testing.T) {
	base := strings.Repeat("The quick brown fox jumps over the lazy dog near the riverbank. ", 40)
	require.Greater(t, len(base), 2000)
	edited := strings.Replace(base, "fox", "cat", 3)

	assert.Greater(t, similarity.Ratio(similarity.Sequence, base, edited), 0.9)
	assert.GreaterOrEqual(t, similarity.CrossReference(similarity.Sequence, []string{base, edited}), 90)
	assert.Equal(t, 100, similarity.CrossReference(similarity.Sequence, []string{base, base}))
}

func TestCrossReferenceRoundsHalfAwayFromZero(t *testing.T) {
	// one shared character over sixteen: 0.125 -> 12.5 -> 13
	assert.Equal(t, 13, similarity.CrossReference(similarity.Sequence, []string{"abcdefgh", "aXXXXXXX"}))
	assert.Equal(t, 50, similarity.CrossReference(similarity.Sequence, []string{"ab", "ac"}))
}

func TestBreakdownOf(t *testing.T) {
	texts := []string{"Effective Java", "effective java", "Effective Java by Joshua Bloch"}
	b := similarity.BreakdownOf(texts)
	for _, method := range similarity.Methods() {
		assert.Equal(t, similarity.CrossReference(method, texts), b.Score(method), string(method))
	}
	assert.Equal(t, 100, similarity.BreakdownOf([]string{"x"}).Combined)
}

func TestParseMethod(t *testing.T) {
	m, err := similarity.ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, similarity.Sequence, m)

	m, err = similarity.ParseMethod(" Sequence_Matcher ")
	require.NoError(t, err)
	assert.Equal(t, similarity.Sequence, m)

	m, err = similarity.ParseMethod("jaccard")
	require.NoError(t, err)
	assert.Equal(t, similarity.Jaccard, m)

	_, err = similarity.ParseMethod("cosine")
	require.Error(t, err)
}
