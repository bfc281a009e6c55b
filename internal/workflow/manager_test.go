package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
	"github.com/IyadElwy/AiBookSummarizer/internal/services"
	"github.com/IyadElwy/AiBookSummarizer/internal/testsupport"
	"github.com/IyadElwy/AiBookSummarizer/internal/workflow"
)

type stubFetch struct {
	mu    sync.Mutex
	calls []broker.FetchRequest
	err   func(call int) error
}

func (s *stubFetch) HandleFetch(_ context.Context, req broker.FetchRequest) error {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	n := len(s.calls)
	s.mu.Unlock()
	if s.err != nil {
		return s.err(n)
	}
	return nil
}

func (s *stubFetch) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type panicGenerate struct{}

func (panicGenerate) HandleGenerate(context.Context, broker.GenerateRequest) error {
	panic("generator exploded")
}

func newManager(t *testing.T, fetch workflow.FetchHandler) (*workflow.Manager, *broker.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	brk := testsupport.MustOpenBroker(t, cfg)
	mgr := workflow.NewManager(cfg, brk, logging.NewNop(), nil)
	if err := mgr.Register(workflow.NewFetchStage(fetch), 1); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return mgr, brk
}

func backlog(t *testing.T, brk *broker.Store, topic string) broker.TopicStats {
	t.Helper()
	stats, err := brk.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	return stats[topic]
}

func TestProcessOneAcksHandledMessage(t *testing.T) {
	fetch := &stubFetch{}
	mgr, brk := newManager(t, fetch)
	ctx := context.Background()

	if err := brk.Publish(ctx, broker.TopicFetch, broker.FetchRequest{ID: 7, ISBN: "9780134685991", Model: "mistral_latest__300", Language: "en"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	handled, err := mgr.ProcessOne(ctx, broker.TopicFetch)
	if err != nil || !handled {
		t.Fatalf("ProcessOne = %v, %v", handled, err)
	}
	if fetch.count() != 1 || fetch.calls[0].ID != 7 || fetch.calls[0].ISBN != "9780134685991" {
		t.Fatalf("unexpected handler calls: %+v", fetch.calls)
	}
	if got := backlog(t, brk, broker.TopicFetch); got != (broker.TopicStats{}) {
		t.Fatalf("expected acked message to be gone, got %+v", got)
	}

	handled, err = mgr.ProcessOne(ctx, broker.TopicFetch)
	if err != nil || handled {
		t.Fatalf("expected empty topic, got %v, %v", handled, err)
	}
}

func TestBusinessOutcomesAreAcked(t *testing.T) {
	outcomes := map[string]error{
		"stale":     pipeline.ErrStaleMessage,
		"not found": jobs.ErrJobNotFound,
	}
	for name, outcome := range outcomes {
		t.Run(name, func(t *testing.T) {
			fetch := &stubFetch{err: func(int) error { return outcome }}
			mgr, brk := newManager(t, fetch)
			ctx := context.Background()
			if err := brk.Publish(ctx, broker.TopicFetch, broker.FetchRequest{ID: 1}); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if _, err := mgr.ProcessOne(ctx, broker.TopicFetch); err != nil {
				t.Fatalf("ProcessOne: %v", err)
			}
			if got := backlog(t, brk, broker.TopicFetch); got.Ready+got.Leased+got.Dead != 0 {
				t.Fatalf("expected message acked, got %+v", got)
			}
		})
	}
}

func TestTransientFailureIsRedelivered(t *testing.T) {
	fetch := &stubFetch{err: func(call int) error {
		if call == 1 {
			return services.Wrap(services.ErrTransient, "fetch", "save document", "", errors.New("database is locked"))
		}
		return nil
	}}
	mgr, brk := newManager(t, fetch)
	ctx := context.Background()
	if err := brk.Publish(ctx, broker.TopicFetch, broker.FetchRequest{ID: 3}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := mgr.ProcessOne(ctx, broker.TopicFetch); err != nil {
		t.Fatalf("first ProcessOne: %v", err)
	}
	if got := backlog(t, brk, broker.TopicFetch); got.Ready != 1 {
		t.Fatalf("expected message released for redelivery, got %+v", got)
	}
	if status := mgr.Status(); status.LastError == "" || status.Lanes[0].Retried != 1 {
		t.Fatalf("expected retry recorded in status, got %+v", status)
	}

	if _, err := mgr.ProcessOne(ctx, broker.TopicFetch); err != nil {
		t.Fatalf("second ProcessOne: %v", err)
	}
	if fetch.count() != 2 {
		t.Fatalf("expected redelivery to reach the handler, got %d calls", fetch.count())
	}
	if got := backlog(t, brk, broker.TopicFetch); got.Ready+got.Leased != 0 {
		t.Fatalf("expected message acked after retry, got %+v", got)
	}
}

func TestUndecodablePayloadIsDropped(t *testing.T) {
	fetch := &stubFetch{}
	mgr, brk := newManager(t, fetch)
	ctx := context.Background()
	if err := brk.Publish(ctx, broker.TopicFetch, map[string]any{"id": "not-a-number"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := mgr.ProcessOne(ctx, broker.TopicFetch); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if fetch.count() != 0 {
		t.Fatalf("handler must not see an undecodable message")
	}
	if got := backlog(t, brk, broker.TopicFetch); got.Ready+got.Leased != 0 {
		t.Fatalf("expected invalid message acked, got %+v", got)
	}
}

func TestPanickingStageIsRetried(t *testing.T) {
	mgr, brk := newManager(t, &stubFetch{})
	if err := mgr.Register(workflow.NewGenerateStage(panicGenerate{}), 1); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx := context.Background()
	if err := brk.Publish(ctx, broker.TopicGenerate, broker.GenerateRequest{ID: 9}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := mgr.ProcessOne(ctx, broker.TopicGenerate); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if got := backlog(t, brk, broker.TopicGenerate); got.Ready != 1 {
		t.Fatalf("expected panicked delivery released, got %+v", got)
	}
}

func TestRegisterRejectsDuplicateTopic(t *testing.T) {
	mgr, _ := newManager(t, &stubFetch{})
	if err := mgr.Register(workflow.NewFetchStage(&stubFetch{}), 2); err == nil {
		t.Fatal("expected duplicate topic to be rejected")
	}
}

func TestStartProcessesUntilStopped(t *testing.T) {
	fetch := &stubFetch{}
	mgr, brk := newManager(t, fetch)
	ctx := context.Background()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	for i := int64(1); i <= 3; i++ {
		if err := brk.Publish(ctx, broker.TopicFetch, broker.FetchRequest{ID: i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for fetch.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 deliveries, got %d", fetch.count())
		}
		time.Sleep(20 * time.Millisecond)
	}
	mgr.Stop()

	status := mgr.Status()
	if status.Running {
		t.Fatal("expected manager stopped")
	}
	if len(status.Lanes) != 1 || status.Lanes[0].Processed != 3 {
		t.Fatalf("unexpected lane status: %+v", status.Lanes)
	}
}

func TestStartWithoutStagesFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := workflow.NewManager(cfg, testsupport.MustOpenBroker(t, cfg), nil, nil)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error without stages")
	}
}

type countingExtender struct {
	calls atomic.Int32
	err   error
}

func (c *countingExtender) ExtendLease(context.Context, *broker.Message) error {
	c.calls.Add(1)
	return c.err
}

func TestHeartbeatExtendsLeaseUntilCancelled(t *testing.T) {
	ext := &countingExtender{}
	hb := workflow.NewHeartbeatMonitor(ext, logging.NewNop(), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go hb.StartLoop(ctx, &wg, &broker.Message{ID: 1})

	deadline := time.Now().Add(5 * time.Second)
	for ext.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected lease extensions, got %d", ext.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()
}

func TestHeartbeatStopsWhenLeaseLost(t *testing.T) {
	ext := &countingExtender{err: broker.ErrLeaseLost}
	hb := workflow.NewHeartbeatMonitor(ext, logging.NewNop(), 5*time.Millisecond)
	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		hb.StartLoop(context.Background(), &wg, &broker.Message{ID: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("heartbeat loop did not stop after losing the lease")
	}
	if ext.calls.Load() != 1 {
		t.Fatalf("expected a single extension attempt, got %d", ext.calls.Load())
	}
}
