package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
)

func TestCollectorRecordsOnOwnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	c.JobSubmitted()
	c.JobSubmitted()
	c.JobFailed("no_sources")
	c.ProviderResult("isbndb", "found", 120*time.Millisecond)
	c.ProviderResult("goodreads", "empty", time.Millisecond)
	c.StageMessage("fetch", metrics.ResultAcked, time.Second)
	c.BrokerBacklog("fetch", 3, 1, 2)

	expected := `
# HELP booksum_jobs_submitted_total Jobs accepted by Submit.
# TYPE booksum_jobs_submitted_total counter
booksum_jobs_submitted_total 2
# HELP booksum_jobs_failed_total Jobs moved to failed, by reason code.
# TYPE booksum_jobs_failed_total counter
booksum_jobs_failed_total{reason="no_sources"} 1
# HELP booksum_broker_messages Broker backlog by topic and state.
# TYPE booksum_broker_messages gauge
booksum_broker_messages{state="dead",topic="fetch"} 2
booksum_broker_messages{state="leased",topic="fetch"} 1
booksum_broker_messages{state="ready",topic="fetch"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"booksum_jobs_submitted_total", "booksum_jobs_failed_total", "booksum_broker_messages"))

	count, err := testutil.GatherAndCount(reg, "booksum_provider_results_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTwoCollectorsDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
		metrics.New(nil)
	})
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.JobSubmitted()
		c.JobCompleted()
		c.JobFailed("x")
		c.ProviderResult("isbndb", "found", time.Second)
		c.StageMessage("fetch", metrics.ResultStale, time.Second)
		c.DocumentConfidence(80)
		c.SummaryLength(300)
		c.BrokerBacklog("fetch", 0, 0, 0)
		c.Heartbeat("default", time.Now())
	})
}

func TestHandlerServesText(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)
	c.Heartbeat("night", time.Unix(1700000000, 0))

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `booksum_worker_heartbeat_timestamp_seconds{worker="night"} 1.7e+09`)
}
