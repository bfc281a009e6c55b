// Package similarity scores how closely a set of source texts agree.
//
// Every method returns a ratio in [0,1] for a pair of strings; CrossReference
// averages the ratio over all unordered pairs and scales it to 0..100. Two
// empty strings are identical and one empty string against a non-empty one
// scores zero, whatever the method.
package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Method selects the pairwise ratio.
type Method string

const (
	// Sequence is the matching-blocks ratio 2*M/T over characters. Case sensitive.
	Sequence Method = "sequence"
	// Levenshtein is 1 - edit distance / longer length, case insensitive.
	Levenshtein Method = "levenshtein"
	// Jaccard compares lower-cased character bigram sets.
	Jaccard Method = "jaccard"
	// Combined is the mean of the three methods above.
	Combined Method = "combined"
)

// Default is the method used when none is configured.
const Default = Sequence

// Methods lists every method in breakdown order.
func Methods() []Method {
	return []Method{Sequence, Levenshtein, Jaccard, Combined}
}

// ParseMethod accepts a method name. "sequence_matcher" is an alias for sequence.
func ParseMethod(value string) (Method, error) {
	switch v := Method(strings.ToLower(strings.TrimSpace(value))); v {
	case "":
		return Default, nil
	case "sequence_matcher":
		return Sequence, nil
	case Sequence, Levenshtein, Jaccard, Combined:
		return v, nil
	default:
		return "", fmt.Errorf("unknown similarity method %q", value)
	}
}

// Ratio returns the similarity of a and b under method.
func Ratio(method Method, a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	switch method {
	case Levenshtein:
		return levenshteinRatio(a, b)
	case Jaccard:
		return jaccardRatio(a, b)
	case Combined:
		return (sequenceRatio(a, b) + levenshteinRatio(a, b) + jaccardRatio(a, b)) / 3
	default:
		return sequenceRatio(a, b)
	}
}

// CrossReference averages Ratio over every unordered pair of texts and scales
// the mean to an integer in [0,100], rounding half away from zero. Fewer than
// two texts score 100.
func CrossReference(method Method, texts []string) int {
	if len(texts) < 2 {
		return 100
	}
	var (
		total float64
		pairs int
	)
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			total += Ratio(method, texts[i], texts[j])
			pairs++
		}
	}
	return int(math.Round(total / float64(pairs) * 100))
}

// Breakdown holds the cross-reference score under every method.
type Breakdown struct {
	Sequence    int `json:"sequence" yaml:"sequence"`
	Levenshtein int `json:"levenshtein" yaml:"levenshtein"`
	Jaccard     int `json:"jaccard" yaml:"jaccard"`
	Combined    int `json:"combined" yaml:"combined"`
}

// Score returns the value for one method.
func (b Breakdown) Score(method Method) int {
	switch method {
	case Levenshtein:
		return b.Levenshtein
	case Jaccard:
		return b.Jaccard
	case Combined:
		return b.Combined
	default:
		return b.Sequence
	}
}

// BreakdownOf scores texts with every method.
func BreakdownOf(texts []string) Breakdown {
	return Breakdown{
		Sequence:    CrossReference(Sequence, texts),
		Levenshtein: CrossReference(Levenshtein, texts),
		Jaccard:     CrossReference(Jaccard, texts),
		Combined:    CrossReference(Combined, texts),
	}
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func sequenceRatio(a, b string) float64 {
	// Autojunk is off: on prose it discards nearly every letter once inputs
	// exceed 200 runes.
	return difflib.NewMatcherWithJunk(runeStrings(a), runeStrings(b), false, nil).Ratio()
}

func levenshteinRatio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	distance := dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
	return 1 - float64(distance)/float64(longest)
}

func bigrams(s string) map[string]struct{} {
	runes := []rune(strings.ToLower(s))
	set := make(map[string]struct{}, len(runes))
	if len(runes) < 2 {
		set[string(runes)] = struct{}{}
		return set
	}
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

func jaccardRatio(a, b string) float64 {
	setA, setB := bigrams(a), bigrams(b)
	intersection := 0
	for gram := range setA {
		if _, ok := setB[gram]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}
