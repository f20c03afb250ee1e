// Package metrics records funnel outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements funnel.Recorder.
type PrometheusRecorder struct {
	transitionsTotal *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	renderDuration   *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the funnel metrics on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_transitions_total",
				Help: "Total number of committed stage transitions by funnel, source and target stage",
			},
			[]string{"funnel", "from", "to"},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funnel_rejections_total",
				Help: "Total number of actions that did not advance a session, by reason",
			},
			[]string{"funnel", "reason"},
		),
		renderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "funnel_render_duration_seconds",
				Help:    "Duration of Telegram send and edit calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"funnel", "op", "status"},
		),
	}
}

func (p *PrometheusRecorder) Transition(funnel, from, to string) {
	p.transitionsTotal.WithLabelValues(funnel, from, to).Inc()
}

func (p *PrometheusRecorder) Rejection(funnel, reason string) {
	p.rejectionsTotal.WithLabelValues(funnel, reason).Inc()
}

func (p *PrometheusRecorder) Render(funnel, op string, ok bool, d time.Duration) {
	status := "success"
	if !ok {
		status = "error"
	}
	p.renderDuration.WithLabelValues(funnel, op, status).Observe(d.Seconds())
}
