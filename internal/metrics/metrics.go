// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts auth operations by event and outcome. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	swept    prometheus.Counter
}

// NewRecorder creates the counters and registers them, together with the
// Go runtime collectors, on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_auth_events_total",
				Help: "Authentication operations by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_auth_sessions_swept_total",
			Help: "Expired sessions removed by the sweeper",
		}),
	}
	reg.MustRegister(r.events, r.swept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe increments the counter for event with the given outcome.
func (r *Recorder) Observe(event, outcome string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(event, outcome).Inc()
}

// Swept adds n removed sessions.
func (r *Recorder) Swept(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.swept.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
