// Package metrics holds the Prometheus collectors for ingestion, chat and
// the upload queue.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	ingestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfchat_ingestions_total",
			Help: "Ingestion jobs by outcome (complete, partial, failed)",
		},
		[]string{"outcome"},
	)
	ingestedPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdfchat_ingested_pages_total",
			Help: "Pages written to the vector store",
		},
	)
	storeWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfchat_store_write_failures_total",
			Help: "Failed vector store writes by record kind (document, pages)",
		},
		[]string{"kind"},
	)
	ingestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdfchat_ingestion_duration_seconds",
			Help:    "Duration of ingestion jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12), // 250ms to ~8.5m
		},
	)
	chatAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfchat_chat_answers_total",
			Help: "Chat answers by outcome",
		},
		[]string{"outcome"},
	)
	chatStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfchat_chat_stage_duration_seconds",
			Help:    "Duration of chat stages (retrieve, generate) in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfchat_uploads_total",
			Help: "Upload requests by result (accepted, rejected, queue_full, error)",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		ingestionsTotal,
		ingestedPagesTotal,
		storeWriteFailuresTotal,
		ingestionDuration,
		chatAnswersTotal,
		chatStageDuration,
		uploadsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func IngestionFinished(outcome string, pages int, d time.Duration) {
	ingestionsTotal.WithLabelValues(outcome).Inc()
	ingestedPagesTotal.Add(float64(pages))
	ingestionDuration.Observe(d.Seconds())
}

func StoreWriteFailed(kind string) {
	storeWriteFailuresTotal.WithLabelValues(kind).Inc()
}

func ChatAnswered(outcome string) {
	chatAnswersTotal.WithLabelValues(outcome).Inc()
}

func ChatStage(stage string, d time.Duration) {
	chatStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func Upload(result string) {
	uploadsTotal.WithLabelValues(result).Inc()
}
