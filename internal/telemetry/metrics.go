// Package telemetry holds the Prometheus metrics exported on /metrics.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChatRequests  *prometheus.CounterVec // labels: mode, outcome
	JobsProcessed *prometheus.CounterVec // labels: type, outcome

	// Histograms
	LLMLatency       *prometheus.HistogramVec // seconds, label: operation
	ContextChars     prometheus.Observer
	ContextDocuments prometheus.Observer

	// Gauges
	CorpusDocuments prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solvencia_chat_requests_total",
			Help: "Chat requests by mode and outcome",
		}, []string{"mode", "outcome"})
		JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solvencia_jobs_processed_total",
			Help: "Background jobs processed by type and outcome",
		}, []string{"type", "outcome"})
		LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solvencia_llm_request_duration_seconds",
			Help:    "Latency of calls to the generative model",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"operation"})
		ContextChars = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "solvencia_context_chars",
			Help:    "Characters of corpus context injected per request",
			Buckets: prometheus.LinearBuckets(0, 5000, 7),
		})
		ContextDocuments = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "solvencia_context_documents",
			Help:    "Corpus documents selected per request",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
		})
		CorpusDocuments = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "solvencia_corpus_documents",
			Help: "Documents in the merged knowledge corpus",
		})
	})
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func RecordChat(mode string, err error) {
	if ChatRequests != nil {
		ChatRequests.WithLabelValues(mode, Outcome(err)).Inc()
	}
}

func RecordJob(jobType string, err error) {
	if JobsProcessed != nil {
		JobsProcessed.WithLabelValues(jobType, Outcome(err)).Inc()
	}
}

// RecordContext observes the size of one assembled context block.
func RecordContext(chars, docs int) {
	if ContextChars != nil {
		ContextChars.Observe(float64(chars))
	}
	if ContextDocuments != nil {
		ContextDocuments.Observe(float64(docs))
	}
}

func SetCorpusSize(n int) {
	if CorpusDocuments != nil {
		CorpusDocuments.Set(float64(n))
	}
}

// ObserveLLM records the time since start under operation.
func ObserveLLM(operation string, start time.Time) {
	if LLMLatency != nil {
		LLMLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
