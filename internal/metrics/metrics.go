package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"visitor-desk/internal/models"
)

// Metrics holds the Prometheus collectors for registration activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submitted     prometheus.Counter
	Processed     *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	StorageErrors prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Name: "visitor_desk_registrations_submitted_total",
			Help: "Registrations accepted from visitors",
		}),
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitor_desk_registrations_processed_total",
			Help: "Registrations moved out of pending, by resulting status",
		}, []string{"status"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitor_desk_operations_rejected_total",
			Help: "Operations refused, by reason",
		}, []string{"reason"}),
		StorageErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "visitor_desk_storage_errors_total",
			Help: "Failed loads and saves of the registration list",
		}),
	}
}

func (m *Metrics) IncSubmitted() {
	if m == nil {
		return
	}
	m.Submitted.Inc()
}

func (m *Metrics) IncProcessed(s models.Status) {
	if m == nil {
		return
	}
	m.Processed.WithLabelValues(string(s)).Inc()
}

// IncRejected counts an operation refused for reason (validation, not_found, invalid_state).
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncStorageErrors() {
	if m == nil {
		return
	}
	m.StorageErrors.Inc()
}
