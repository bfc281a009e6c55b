package jobs

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle stage of a summary job.
type Status string

const (
	StatusValidatingISBN    Status = "validating_isbn"
	StatusCollectingData    Status = "collecting_data"
	StatusDataCollected     Status = "data_collected"
	StatusGeneratingSummary Status = "generating_summary"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

var orderedStatuses = []Status{
	StatusValidatingISBN,
	StatusCollectingData,
	StatusDataCollected,
	StatusGeneratingSummary,
	StatusCompleted,
	StatusFailed,
}

var successors = map[Status][]Status{
	StatusValidatingISBN:    {StatusCollectingData, StatusFailed},
	StatusCollectingData:    {StatusDataCollected, StatusFailed},
	StatusDataCollected:     {StatusGeneratingSummary, StatusFailed},
	StatusGeneratingSummary: {StatusCompleted, StatusFailed},
}

// AllStatuses returns every status in pipeline order, failed last.
func AllStatuses() []Status {
	return append([]Status(nil), orderedStatuses...)
}

// ParseStatus converts a string into a known status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range orderedStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", value)
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Rank orders statuses along the happy path. Failed ranks past completed.
func (s Status) Rank() int {
	for i, status := range orderedStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether to is an allowed successor of s.
func (s Status) CanTransition(to Status) bool {
	for _, next := range successors[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Predecessors lists the statuses from which to may be entered. The initial
// status has none.
func Predecessors(to Status) []Status {
	var out []Status
	for _, from := range orderedStatuses {
		if from.CanTransition(to) {
			out = append(out, from)
		}
	}
	return out
}

// PredecessorStrings is Predecessors rendered for SQL IN clauses.
func PredecessorStrings(to Status) []string {
	preds := Predecessors(to)
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = string(p)
	}
	return out
}
