package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	runTotal           *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	runInFlight        prometheus.Gauge
	filesProcessed     *prometheus.CounterVec
	chunksCreated      *prometheus.CounterVec
	chunksDeduplicated *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dd",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Total ingestion runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dd",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Ingestion run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dd",
			Subsystem: "ingest",
			Name:      "runs_in_flight",
			Help:      "Number of in-flight ingestion runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	filesProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dd",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total files handled by ingestion runs, by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chunksCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dd",
			Subsystem: "ingest",
			Name:      "chunks_created_total",
			Help:      "Total chunks stored across ingestion runs.",
		},
		[]string{"service"},
	)
	chunksDeduplicated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dd",
			Subsystem: "ingest",
			Name:      "chunks_deduplicated_total",
			Help:      "Total chunks rejected as duplicates across ingestion runs.",
		},
		[]string{"service"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, filesProcessed, chunksCreated, chunksDeduplicated)

	return &WorkerMetrics{
		registry:           registry,
		runTotal:           runTotal,
		runDuration:        runDuration,
		runInFlight:        runInFlight,
		filesProcessed:     filesProcessed,
		chunksCreated:      chunksCreated,
		chunksDeduplicated: chunksDeduplicated,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(service string, duration time.Duration, stats *domain.IngestionStats, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.runTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())

	if stats == nil {
		return
	}
	if stats.FilesProcessed > 0 {
		m.filesProcessed.WithLabelValues(service, "processed").Add(float64(stats.FilesProcessed))
	}
	if stats.FilesFailed > 0 {
		m.filesProcessed.WithLabelValues(service, "failed").Add(float64(stats.FilesFailed))
	}
	if stats.ChunksCreated > 0 {
		m.chunksCreated.WithLabelValues(service).Add(float64(stats.ChunksCreated))
	}
	if stats.ChunksDeduplicated > 0 {
		m.chunksDeduplicated.WithLabelValues(service).Add(float64(stats.ChunksDeduplicated))
	}
}
