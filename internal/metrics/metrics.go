// Package metrics exposes the pipeline's Prometheus instruments.
//
// A Collector registers its instruments on the registry handed to New, so
// tests and multiple daemons in one process never collide on the default
// registry. All methods are safe on a nil *Collector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booksum"

// Message results recorded by the stage runner.
const (
	ResultAcked    = "acked"
	ResultStale    = "stale"
	ResultNotFound = "not_found"
	ResultRetried  = "retried"
	ResultInvalid  = "invalid"
)

// Collector holds the pipeline's Prometheus instruments.
type Collector struct {
	jobsSubmitted    prometheus.Counter
	jobsCompleted    prometheus.Counter
	jobsFailed       *prometheus.CounterVec
	providerResults  *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	stageMessages    *prometheus.CounterVec
	stageLatency     *prometheus.HistogramVec
	confidence       prometheus.Histogram
	brokerMessages   *prometheus.GaugeVec
	workerHeartbeat  *prometheus.GaugeVec
	generationLength prometheus.Histogram
}

// New builds a Collector and registers it on reg. A nil reg uses a fresh registry.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted by Submit.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Jobs that reached completed.",
		}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Jobs moved to failed, by reason code.",
		}, []string{"reason"}),
		providerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_results_total",
			Help:      "Provider fetch attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Provider fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		stageMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_messages_total",
			Help:      "Broker deliveries handled, by topic and result.",
		}, []string{"topic", "result"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Handler latency per delivery.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"topic"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_composite_confidence",
			Help:      "Composite confidence of aggregated documents.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		brokerMessages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broker_messages",
			Help:      "Broker backlog by topic and state.",
		}, []string{"topic", "state"}),
		workerHeartbeat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_heartbeat_timestamp_seconds",
			Help:      "Unix time of the last liveness tick per worker.",
		}, []string{"worker"}),
		generationLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_length_characters",
			Help:      "Length of generated summaries.",
			Buckets:   prometheus.ExponentialBuckets(50, 2, 8),
		}),
	}
	reg.MustRegister(
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsFailed,
		c.providerResults,
		c.providerLatency,
		c.stageMessages,
		c.stageLatency,
		c.confidence,
		c.brokerMessages,
		c.workerHeartbeat,
		c.generationLength,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) JobSubmitted() {
	if c == nil {
		return
	}
	c.jobsSubmitted.Inc()
}

func (c *Collector) JobCompleted() {
	if c == nil {
		return
	}
	c.jobsCompleted.Inc()
}

func (c *Collector) JobFailed(reason string) {
	if c == nil {
		return
	}
	c.jobsFailed.WithLabelValues(reason).Inc()
}

// ProviderResult records one provider attempt.
func (c *Collector) ProviderResult(provider, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.providerResults.WithLabelValues(provider, outcome).Inc()
	c.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// StageMessage records how a delivery on topic was settled.
func (c *Collector) StageMessage(topic, result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.stageMessages.WithLabelValues(topic, result).Inc()
	c.stageLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
}

func (c *Collector) DocumentConfidence(composite int) {
	if c == nil {
		return
	}
	c.confidence.Observe(float64(composite))
}

func (c *Collector) SummaryLength(chars int) {
	if c == nil {
		return
	}
	c.generationLength.Observe(float64(chars))
}

// BrokerBacklog sets the ready, leased and dead gauges for topic.
func (c *Collector) BrokerBacklog(topic string, ready, leased, dead int) {
	if c == nil {
		return
	}
	c.brokerMessages.WithLabelValues(topic, "ready").Set(float64(ready))
	c.brokerMessages.WithLabelValues(topic, "leased").Set(float64(leased))
	c.brokerMessages.WithLabelValues(topic, "dead").Set(float64(dead))
}

// Heartbeat stamps the worker's liveness gauge with at.
func (c *Collector) Heartbeat(worker string, at time.Time) {
	if c == nil {
		return
	}
	c.workerHeartbeat.WithLabelValues(worker).Set(float64(at.Unix()))
}
