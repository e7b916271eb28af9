package voiceprint

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "speakerid"

// Metrics holds the Prometheus collectors for verification, enrollment and
// store traffic. A nil *Metrics records nothing.
type Metrics struct {
	Verifications    *prometheus.CounterVec
	VerifyScore      prometheus.Histogram
	VerifyDuration   prometheus.Histogram
	Enrollments      *prometheus.CounterVec
	Identifications  prometheus.Counter
	StoreOperations  *prometheus.CounterVec
	ExtractDurations prometheus.Histogram
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verifications_total",
			Help:      "Verification calls by outcome (accept, reject, or error kind).",
		}, []string{"outcome"}),
		VerifyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "verify_score",
			Help:      "Cosine similarity scores of completed verifications.",
			Buckets:   prometheus.LinearBuckets(-1, 0.1, 21),
		}),
		VerifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "verify_duration_seconds",
			Help:      "Verification latency including load and extraction.",
			Buckets:   prometheus.DefBuckets,
		}),
		Enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "enrollments_total",
			Help:      "Enrollment calls by outcome.",
		}, []string{"outcome"}),
		Identifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "identifications_total",
			Help:      "Completed 1:N identification searches.",
		}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_operations_total",
			Help:      "Embedding store operations by op and status.",
		}, []string{"op", "status"}),
		ExtractDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "extract_duration_seconds",
			Help:      "Embedding extraction latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}

// Register registers all collectors with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Verifications,
		m.VerifyScore,
		m.VerifyDuration,
		m.Enrollments,
		m.Identifications,
		m.StoreOperations,
		m.ExtractDurations,
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// outcome maps an error to a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLoad):
		return "load_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmbeddingMismatch):
		return "mismatch"
	case errors.Is(err, ErrDegenerateEmbedding):
		return "degenerate"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrInvalidSpeakerID):
		return "invalid_id"
	default:
		return "error"
	}
}

func (m *Metrics) verified(res *Result, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.VerifyDuration.Observe(took.Seconds())
	if err != nil {
		m.Verifications.WithLabelValues(outcome(err)).Inc()
		return
	}
	m.VerifyScore.Observe(res.Score)
	if res.SameSpeaker {
		m.Verifications.WithLabelValues("accept").Inc()
	} else {
		m.Verifications.WithLabelValues("reject").Inc()
	}
}

func (m *Metrics) enrolled(err error) {
	if m == nil {
		return
	}
	m.Enrollments.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) identified() {
	if m == nil {
		return
	}
	m.Identifications.Inc()
}

func (m *Metrics) extracted(took time.Duration) {
	if m == nil {
		return
	}
	m.ExtractDurations.Observe(took.Seconds())
}

func (m *Metrics) storeOp(op string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(op, status).Inc()
}
