package liveness_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IyadElwy/AiBookSummarizer/internal/liveness"
	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
)

func TestFileReporterWritesTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "heartbeat")
	r := liveness.FileReporter{Path: path}
	at := time.Unix(1700000000, 0)

	require.NoError(t, r.Report(context.Background(), at))
	got, err := liveness.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, got.Equal(at))

	later := at.Add(time.Minute)
	require.NoError(t, r.Report(context.Background(), later))
	got, err = liveness.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, got.Equal(later))
}

func TestFileReporterRequiresPath(t *testing.T) {
	assert.Error(t, liveness.FileReporter{}.Report(context.Background(), time.Now()))
}

func TestMetricReporterSetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := liveness.MetricReporter{Worker: "default", Collector: metrics.New(reg)}
	require.NoError(t, r.Report(context.Background(), time.Unix(1700000000, 0)))

	families, err := reg.Gather()
	require.NoError(t, err)
	var value float64
	for _, mf := range families {
		if mf.GetName() == "booksum_worker_heartbeat_timestamp_seconds" {
			value = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(1700000000), value)
}

type countingReporter struct {
	calls atomic.Int32
	err   error
}

func (c *countingReporter) Report(context.Context, time.Time) error {
	c.calls.Add(1)
	return c.err
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &countingReporter{}
	bad := &countingReporter{err: errors.New("disk full")}
	err := liveness.Multi{ok, nil, bad}.Report(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.EqualValues(t, 1, ok.calls.Load())
	assert.EqualValues(t, 1, bad.calls.Load())
}

func TestRunReportsUntilCancelled(t *testing.T) {
	r := &countingReporter{err: errors.New("ignored")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		liveness.Run(ctx, 5*time.Millisecond, logging.NewNop(), r)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
