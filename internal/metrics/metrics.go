package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceManual    = "manual"
	SourceScheduled = "scheduled"
)

type Metrics struct {
	feedItemsAdded *prometheus.CounterVec
	jobFirings     *prometheus.CounterVec
	activeJobs     prometheus.Gauge
	storageFaults  *prometheus.CounterVec
	quizUploads    *prometheus.CounterVec
}

func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		feedItemsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_items_added_total",
				Help:      "Feed items recorded, by source",
			},
			[]string{"source"},
		),
		jobFirings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_firings_total",
				Help:      "Scheduled job firings, by outcome",
			},
			[]string{"outcome"},
		),
		activeJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scheduler_active_jobs",
				Help:      "Number of registered live timers",
			},
		),
		storageFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_faults_total",
				Help:      "Storage operations that fell back after a fault",
			},
			[]string{"op"},
		),
		quizUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quiz_uploads_total",
				Help:      "Quiz uploads to the publishing API, by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.feedItemsAdded,
		m.jobFirings,
		m.activeJobs,
		m.storageFaults,
		m.quizUploads,
	)
	return m
}

// The methods below are safe on a nil *Metrics so callers and tests can
// run without a registry.

func (m *Metrics) FeedItemAdded(source string) {
	if m == nil {
		return
	}
	m.feedItemsAdded.WithLabelValues(source).Inc()
}

func (m *Metrics) JobFired(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "degraded"
	}
	m.jobFirings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveJobs(n int) {
	if m == nil {
		return
	}
	m.activeJobs.Set(float64(n))
}

func (m *Metrics) StorageFault(op string, _ error) {
	if m == nil {
		return
	}
	m.storageFaults.WithLabelValues(op).Inc()
}

func (m *Metrics) QuizUpload(status string) {
	if m == nil {
		return
	}
	m.quizUploads.WithLabelValues(status).Inc()
}
