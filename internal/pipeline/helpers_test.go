package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/IyadElwy/AiBookSummarizer/internal/aggregate"
	"github.com/IyadElwy/AiBookSummarizer/internal/broker"
	"github.com/IyadElwy/AiBookSummarizer/internal/jobs"
	"github.com/IyadElwy/AiBookSummarizer/internal/pipeline"
	"github.com/IyadElwy/AiBookSummarizer/internal/providers"
	"github.com/IyadElwy/AiBookSummarizer/internal/testsupport"
)

// recordingStore records every status change the coordinator requests.
type recordingStore struct {
	jobs.Repository

	mu    sync.Mutex
	calls []string
}

func (s *recordingStore) Transition(ctx context.Context, id int64, to jobs.Status) error {
	s.mu.Lock()
	s.calls = append(s.calls, string(to))
	s.mu.Unlock()
	return s.Repository.Transition(ctx, id, to)
}

func (s *recordingStore) Fail(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	s.calls = append(s.calls, "failed:"+reason)
	s.mu.Unlock()
	return s.Repository.Fail(ctx, id, reason)
}

func (s *recordingStore) transitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{topic: topic, payload: payload})
	return nil
}

func (p *fakePublisher) onTopic(topic string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

type fakeAggregator struct {
	mu    sync.Mutex
	calls int
	res   *aggregate.Result
	err   error
}

func (a *fakeAggregator) Aggregate(context.Context, string) (*aggregate.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.res, a.err
}

func (a *fakeAggregator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeGenerator struct {
	calls   int
	summary string
	err     error
	during  func()
}

func (g *fakeGenerator) Generate(context.Context, *jobs.Document) (string, error) {
	g.calls++
	if g.during != nil {
		g.during()
	}
	return g.summary, g.err
}

type staticProvider struct {
	kind           providers.Kind
	titleDependent bool
	result         providers.Result
}

func (p staticProvider) Kind() providers.Kind { return p.kind }

func (p staticProvider) TitleDependent() bool { return p.titleDependent }

func (p staticProvider) Fetch(context.Context, providers.Query) providers.Result { return p.result }

type harness struct {
	store     *recordingStore
	publisher *fakePublisher
	agg       *fakeAggregator
	gen       *fakeGenerator
	coord     *pipeline.Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		store:     &recordingStore{Repository: testsupport.MustOpenStore(t, cfg)},
		publisher: &fakePublisher{},
		agg: &fakeAggregator{res: &aggregate.Result{
			Title:   "Effective Java",
			Authors: []string{"Joshua Bloch"},
			Sources: []jobs.SourceRecord{
				{Type: "isbndb", URL: "https://isbndb.test/book/9780134685991", Data: "text A", Reliability: 90},
				{Type: "openlibrary", URL: "https://openlibrary.test/works/OL1W", Data: "text A", Reliability: 70},
			},
		}},
		gen: &fakeGenerator{summary: testsupport.RepeatText("A practical tour of Java best practices. ", 300)},
	}
	h.agg.res.Confidence.SourceReliability = 80
	h.agg.res.Confidence.ContentCoverage = 10
	h.agg.res.Confidence.CrossReference = 100
	h.agg.res.Confidence.Composite = 63

	coord, err := pipeline.New(pipeline.Deps{
		Store:      h.store,
		Publisher:  h.publisher,
		Aggregator: h.agg,
		Generator:  h.gen,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	h.coord = coord
	return h
}

func (h *harness) submit(t *testing.T) *jobs.Job {
	t.Helper()
	job, err := h.coord.Submit(context.Background(), pipeline.SubmitRequest{
		Owner: "alice", ISBN: "978-0-13-468599-1", Language: "en", Model: "mistral_latest__300",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return job
}

func (h *harness) fetchRequest(t *testing.T) broker.FetchRequest {
	t.Helper()
	msgs := h.publisher.onTopic(broker.TopicFetch)
	if len(msgs) == 0 {
		t.Fatal("no fetch message published")
	}
	req, ok := msgs[len(msgs)-1].(broker.FetchRequest)
	if !ok {
		t.Fatalf("unexpected fetch payload %T", msgs[len(msgs)-1])
	}
	return req
}

func (h *harness) generateRequest(t *testing.T) broker.GenerateRequest {
	t.Helper()
	msgs := h.publisher.onTopic(broker.TopicGenerate)
	if len(msgs) == 0 {
		t.Fatal("no generate message published")
	}
	req, ok := msgs[len(msgs)-1].(broker.GenerateRequest)
	if !ok {
		t.Fatalf("unexpected generate payload %T", msgs[len(msgs)-1])
	}
	return req
}

var errBoom = errors.New("boom")
