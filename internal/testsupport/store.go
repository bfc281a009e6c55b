package testsupport

import (
	"context"
	"testing"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/config"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenBroker opens a broker.Store for tests and registers cleanup.
func MustOpenBroker(t testing.TB, cfg *config.Config) *broker.Store {
	t.Helper()

	store, err := broker.Open(cfg)
	if err != nil {
		t.Fatalf("broker.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewJob creates a job at validating_isbn for tests.
func NewJob(t testing.TB, store jobs.Repository, isbn string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), "tester", isbn)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

// AdvanceJob walks a job forward through each status in order.
func AdvanceJob(t testing.TB, store jobs.Repository, id int64, statuses ...jobs.Status) {
	t.Helper()

	for _, status := range statuses {
		if err := store.Transition(context.Background(), id, status); err != nil {
			t.Fatalf("transition %d to %s: %v", id, status, err)
		}
	}
}
