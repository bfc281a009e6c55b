package main

import (
	"context"
	"testing"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/testsupport"
)

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.NewNop()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestBuildRejectsUnknownStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.Driver = "mysql"
	if _, _, err := build(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatal("expected unknown store driver to fail")
	}
}
