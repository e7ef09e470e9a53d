package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

// WorkflowMetrics records conversion and export outcomes for every session.
type WorkflowMetrics struct {
	service string

	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	exportsTotal       *prometheus.CounterVec
}

func NewWorkflowMetrics(service string, registerer prometheus.Registerer) *WorkflowMetrics {
	conversionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "img2sheet",
			Subsystem: "conversion",
			Name:      "total",
			Help:      "Total conversion attempts by processing mode and outcome.",
		},
		[]string{"service", "mode", "outcome"},
	)
	conversionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "img2sheet",
			Subsystem: "conversion",
			Name:      "duration_seconds",
			Help:      "Round trip to the conversion service plus normalization, in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "mode"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "img2sheet",
			Subsystem: "export",
			Name:      "total",
			Help:      "Total spreadsheet exports by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registerer.MustRegister(conversionsTotal, conversionDuration, exportsTotal)

	return &WorkflowMetrics{
		service:            service,
		conversionsTotal:   conversionsTotal,
		conversionDuration: conversionDuration,
		exportsTotal:       exportsTotal,
	}
}

func (m *WorkflowMetrics) ObserveConversion(mode domain.ProcessingMode, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.conversionsTotal.WithLabelValues(m.service, mode.String(), outcome).Inc()
	if duration > 0 {
		m.conversionDuration.WithLabelValues(m.service, mode.String()).Observe(duration.Seconds())
	}
}

func (m *WorkflowMetrics) ObserveExport(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.exportsTotal.WithLabelValues(m.service, outcome).Inc()
}
