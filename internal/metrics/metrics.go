// Package metrics exposes Prometheus collectors for detector runs, ingest
// runs, chat answers and HTTP traffic. A Collector implements
// detect.Observer and graph.Observer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kwenta"

// Collector holds the metrics on a private registry, so that several
// collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	DetectorRuns     *prometheus.CounterVec
	DetectorDuration *prometheus.HistogramVec
	DetectorFlags    *prometheus.GaugeVec

	IngestRuns     *prometheus.CounterVec
	IngestRecords  *prometheus.CounterVec
	IngestSkipped  *prometheus.CounterVec
	IngestDuration *prometheus.HistogramVec

	ChatAnswers *prometheus.CounterVec
	ChatTokens  *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DetectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_runs_total",
			Help:      "Detector runs by outcome.",
		}, []string{"detector", "outcome"}),
		DetectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detector_duration_seconds",
			Help:      "Detector run time.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
		}, []string{"detector"}),
		DetectorFlags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detector_flags",
			Help:      "Flags raised by the last successful run of each detector.",
		}, []string{"detector"}),
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingest runs by source and outcome.",
		}, []string{"source", "outcome"}),
		IngestRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Records read by ingest runs.",
		}, []string{"source"}),
		IngestSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_skipped_total",
			Help:      "Malformed records skipped by ingest runs.",
		}, []string{"source"}),
		IngestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Ingest run time.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		}, []string{"source"}),
		ChatAnswers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_answers_total",
			Help:      "Chat answers by intent and outcome.",
		}, []string{"intent", "outcome"}),
		ChatTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_tokens_total",
			Help:      "Model tokens used by chat answers.",
		}, []string{"direction"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.DetectorRuns,
		c.DetectorDuration,
		c.DetectorFlags,
		c.IngestRuns,
		c.IngestRecords,
		c.IngestSkipped,
		c.IngestDuration,
		c.ChatAnswers,
		c.ChatTokens,
	)
	return c
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (c *Collector) DetectorFinished(name string, took time.Duration, flags int, err error) {
	c.DetectorRuns.WithLabelValues(name, outcome(err)).Inc()
	c.DetectorDuration.WithLabelValues(name).Observe(took.Seconds())
	if err == nil {
		c.DetectorFlags.WithLabelValues(name).Set(float64(flags))
	}
}

func (c *Collector) IngestFinished(source string, records, skipped int, took time.Duration, err error) {
	c.IngestRuns.WithLabelValues(source, outcome(err)).Inc()
	c.IngestRecords.WithLabelValues(source).Add(float64(records))
	c.IngestSkipped.WithLabelValues(source).Add(float64(skipped))
	c.IngestDuration.WithLabelValues(source).Observe(took.Seconds())
}

func (c *Collector) ChatAnswered(intent string, inputTokens, outputTokens int, err error) {
	c.ChatAnswers.WithLabelValues(intent, outcome(err)).Inc()
	c.ChatTokens.WithLabelValues("input").Add(float64(inputTokens))
	c.ChatTokens.WithLabelValues("output").Add(float64(outputTokens))
}

// ObserveHTTP records one request. route is the matched route pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, took time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
