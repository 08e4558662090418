package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the worker's Prometheus collectors. A nil *Metrics is
// valid and turns every observation into a no-op, which keeps the
// pipeline testable without a registry.
type Metrics struct {
	processedTotal     *prometheus.CounterVec
	dedupSkips         prometheus.Counter
	decodeFailures     prometheus.Counter
	queueReconnects    prometheus.Counter
	deadLetters        prometheus.Counter
	processingDuration prometheus.Histogram
	chunkDuration      prometheus.Histogram
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		processedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dealscreener_submissions_processed_total",
			Help: "Submissions processed by terminal status",
		}, []string{"status"}),
		dedupSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealscreener_dedup_skips_total",
			Help: "Messages skipped because an idempotency marker was present",
		}),
		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealscreener_decode_failures_total",
			Help: "Queue payloads dropped because they could not be decoded",
		}),
		queueReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealscreener_queue_reconnects_total",
			Help: "Successful reconnects after a transport loss",
		}),
		deadLetters: factory.NewCounter(prometheus.CounterOpts{
			Name: "dealscreener_dead_letters_total",
			Help: "Verdicts pushed to the dead-letter list after a persistence failure",
		}),
		processingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealscreener_processing_duration_seconds",
			Help:    "End-to-end processing time per submission",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		chunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealscreener_chunk_evaluation_duration_seconds",
			Help:    "Summarization time per chunk",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// ObserveProcessed records one terminal submission outcome.
func (m *Metrics) ObserveProcessed(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.processedTotal.WithLabelValues(status).Inc()
	m.processingDuration.Observe(elapsed.Seconds())
}

// ObserveChunk records one chunk evaluation.
func (m *Metrics) ObserveChunk(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.chunkDuration.Observe(elapsed.Seconds())
}

// IncDedupSkip counts a marker-based skip.
func (m *Metrics) IncDedupSkip() {
	if m == nil {
		return
	}
	m.dedupSkips.Inc()
}

// IncDecodeFailure counts a dropped payload.
func (m *Metrics) IncDecodeFailure() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

// IncQueueReconnect counts a recovered transport connection.
func (m *Metrics) IncQueueReconnect() {
	if m == nil {
		return
	}
	m.queueReconnects.Inc()
}

// IncDeadLetter counts a dead-lettered verdict.
func (m *Metrics) IncDeadLetter() {
	if m == nil {
		return
	}
	m.deadLetters.Inc()
}
