// Package liveness stamps periodic proof that a worker process is alive.
//
// The daemon runs a ticker loop that hands the current time to every
// configured Reporter. A supervisor watches the stamp (file mtime/content or
// the booksum_worker_heartbeat_timestamp_seconds gauge) and restarts the
// process when it goes stale.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/IyadElwy/AiBookSummarizer/internal/logging"
	"github.com/IyadElwy/AiBookSummarizer/internal/metrics"
)

// Reporter records that the process was alive at a point in time.
type Reporter interface {
	Report(ctx context.Context, at time.Time) error
}

// FileReporter writes the Unix timestamp to a file, replacing it atomically.
type FileReporter struct {
	Path string
}

// Report implements Reporter.
func (r FileReporter) Report(_ context.Context, at time.Time) error {
	if r.Path == "" {
		return errors.New("liveness: file path not set")
	}
	dir := filepath.Dir(r.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("liveness: ensure dir: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s-%d.tmp", filepath.Base(r.Path), time.Now().UnixNano()))
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(at.Unix(), 10)+"\n"), 0o644); err != nil {
		return fmt.Errorf("liveness: write temp: %w", err)
	}
	if err := os.Rename(tmp, r.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("liveness: rename: %w", err)
	}
	return nil
}

// ReadFile returns the timestamp last written by a FileReporter.
func ReadFile(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(string(trimNewline(data)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("liveness: parse %s: %w", path, err)
	}
	return time.Unix(secs, 0), nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// MetricReporter sets the worker heartbeat gauge.
type MetricReporter struct {
	Worker    string
	Collector *metrics.Collector
}

// Report implements Reporter.
func (r MetricReporter) Report(_ context.Context, at time.Time) error {
	r.Collector.Heartbeat(r.Worker, at)
	return nil
}

// Multi fans a report out to several reporters and joins their errors.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, at time.Time) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run reports once immediately and then every interval until ctx is done.
// Report failures are logged and do not stop the loop.
func Run(ctx context.Context, interval time.Duration, logger *slog.Logger, reporter Reporter) {
	if reporter == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	logger = logging.NewComponentLogger(logger, "liveness")

	report := func(at time.Time) {
		if err := reporter.Report(ctx, at); err != nil {
			logging.WarnWithContext(logger, "liveness report failed", "liveness_report_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "supervisor may consider the worker stalled"),
			)
		}
	}

	report(time.Now())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			report(at)
		}
	}
}
