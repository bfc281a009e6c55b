package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind names one metadata source.
type Kind string

const (
	KindISBNdb      Kind = "isbndb"
	KindOpenLibrary Kind = "openlibrary"
	KindGoodreads   Kind = "goodreads"
)

// Kinds returns every provider in aggregation order.
func Kinds() []Kind {
	return []Kind{KindISBNdb, KindOpenLibrary, KindGoodreads}
}

// ParseKind accepts a provider name.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", value)
}

// Outcome classifies one provider attempt.
type Outcome string

const (
	// OutcomeFound means the provider returned non-empty text.
	OutcomeFound Outcome = "found"
	// OutcomeEmpty means the provider answered but had nothing, or was skipped.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means the attempt errored or timed out.
	OutcomeFailed Outcome = "failed"
)

// Query carries what a provider may look a book up by. Title and Author are
// only set for title-dependent providers.
type Query struct {
	ISBN   string
	Title  string
	Author string
}

// Result is the typed outcome of one Fetch call.
type Result struct {
	Kind     Kind
	Outcome  Outcome
	URL      string
	Text     string
	Title    string
	Authors  []string
	Reason   string
	Err      error
	Duration time.Duration
}

// Found builds a found result, downgrading to empty when text is blank.
func Found(kind Kind, url, text, title string, authors []string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Empty(kind, "no content")
	}
	return Result{Kind: kind, Outcome: OutcomeFound, URL: url, Text: text, Title: strings.TrimSpace(title), Authors: authors}
}

// Empty builds an empty result with a reason.
func Empty(kind Kind, reason string) Result {
	return Result{Kind: kind, Outcome: OutcomeEmpty, Reason: reason}
}

// Failed builds a failed result.
func Failed(kind Kind, err error) Result {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Result{Kind: kind, Outcome: OutcomeFailed, Reason: reason, Err: err}
}

// Provider fetches book material from one source. Fetch never panics or
// returns a bare error; failures are reported as OutcomeFailed.
type Provider interface {
	Kind() Kind
	// TitleDependent reports whether Fetch needs Query.Title.
	TitleDependent() bool
	Fetch(ctx context.Context, q Query) Result
}
