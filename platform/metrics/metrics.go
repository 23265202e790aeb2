// Package metrics exposes Prometheus counters for the call reconciliation path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the application counters. A nil *Recorder records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	webhookEvents   *prometheus.CounterVec
	callInitiations *prometheus.CounterVec
	calendarOps     *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revive_webhook_events_total",
			Help: "Voice provider webhook deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		callInitiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revive_call_initiations_total",
			Help: "Outbound call attempts by outcome.",
		}, []string{"outcome"}),
		calendarOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revive_calendar_operations_total",
			Help: "Calendar provider operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(r.webhookEvents, r.callInitiations, r.calendarOps)
	return r
}

// WebhookEvent counts one handled delivery.
func (r *Recorder) WebhookEvent(eventType, outcome string) {
	if r == nil {
		return
	}
	r.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// CallInitiation counts one outbound call attempt.
func (r *Recorder) CallInitiation(outcome string) {
	if r == nil {
		return
	}
	r.callInitiations.WithLabelValues(outcome).Inc()
}

// CalendarOperation counts one calendar provider interaction.
func (r *Recorder) CalendarOperation(operation, outcome string) {
	if r == nil {
		return
	}
	r.calendarOps.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Gatherer exposes the registry to tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}
