package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	Messages          *prometheus.CounterVec
	Replies           *prometheus.CounterVec
	Degradations      *prometheus.CounterVec
	GenerationAttempt prometheus.Histogram
	RetrievalHits     prometheus.Histogram
	HandleLatency     *prometheus.HistogramVec
	RecorderFailures  *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by type.",
		}, []string{"type"}),
		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies by outcome.",
		}, []string{"outcome"}),
		Degradations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Collaborator failures absorbed by the pipeline, by kind.",
		}, []string{"kind"}),
		GenerationAttempt: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Generation attempts needed per message.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		RetrievalHits: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_chunks",
			Help:      "Chunks returned per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		HandleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_latency_seconds",
			Help:      "End-to-end message handling latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"type"}),
		RecorderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_failures_total",
			Help:      "Research log sink failures by sink.",
		}, []string{"sink"}),
	}
}

func (m *Metrics) ObserveMessage(t domain.MessageType) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) ObserveReply(succeeded bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	m.Replies.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDegradation(kind domain.ErrorKind) {
	if m == nil {
		return
	}
	m.Degradations.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveGenerationAttempts(n int) {
	if m == nil {
		return
	}
	m.GenerationAttempt.Observe(float64(n))
}

func (m *Metrics) ObserveRetrieval(chunks int) {
	if m == nil {
		return
	}
	m.RetrievalHits.Observe(float64(chunks))
}

func (m *Metrics) ObserveHandle(t domain.MessageType, d time.Duration) {
	if m == nil {
		return
	}
	m.HandleLatency.WithLabelValues(string(t)).Observe(d.Seconds())
}

func (m *Metrics) ObserveRecorderFailure(sink string) {
	if m == nil {
		return
	}
	m.RecorderFailures.WithLabelValues(sink).Inc()
}

// Handler serves this instance's registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
