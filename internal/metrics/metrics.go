package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"caseflow/internal/models"
)

// Recorder exposes lifecycle engine observations as Prometheus metrics. It
// implements lifecycle.Recorder.
type Recorder struct {
	transitions     *prometheus.CounterVec
	transitionTime  *prometheus.HistogramVec
	guardFailures   *prometheus.CounterVec
	autoTransitions *prometheus.CounterVec
}

// NewRecorder creates the recorder and registers its collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_transitions_total",
			Help: "Lifecycle transitions by entity kind and outcome.",
		}, []string{"kind", "outcome"}),
		transitionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_transition_duration_seconds",
			Help:    "Lifecycle transition unit-of-work duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		guardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_guard_failures_total",
			Help: "Business guard rejections by entity kind.",
		}, []string{"kind"}),
		autoTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_auto_transitions_total",
			Help: "System-triggered transitions by entity kind and target state.",
		}, []string{"kind", "target"}),
	}
	reg.MustRegister(r.transitions, r.transitionTime, r.guardFailures, r.autoTransitions)
	return r
}

func (r *Recorder) ObserveTransition(kind models.EntityKind, outcome string, d time.Duration) {
	r.transitions.WithLabelValues(string(kind), outcome).Inc()
	r.transitionTime.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (r *Recorder) GuardFailure(kind models.EntityKind) {
	r.guardFailures.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) AutoTransition(kind models.EntityKind, target string) {
	r.autoTransitions.WithLabelValues(string(kind), target).Inc()
}
