package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document module. Tracks mutation
// counts, amendment races, and critical path durations.
type Metrics struct {
	DocumentsCreated prometheus.Counter
	DocumentsAmended prometheus.Counter
	DocumentsDeleted prometheus.Counter
	AmendConflicts   prometheus.Counter
	UpdatesRejected  prometheus.Counter
	AmendDuration    prometheus.Histogram
	HistoryDuration  prometheus.Histogram
}

// New creates a Metrics instance with all document module metrics registered.
func New() *Metrics {
	return &Metrics{
		DocumentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docvault_documents_created_total",
			Help: "Total number of root document records created",
		}),
		DocumentsAmended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docvault_documents_amended_total",
			Help: "Total number of superseding versions created",
		}),
		DocumentsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docvault_documents_deleted_total",
			Help: "Total number of records tombstoned",
		}),
		AmendConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docvault_amend_conflicts_total",
			Help: "Amendments rejected because a concurrent amendment won",
		}),
		UpdatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docvault_updates_rejected_total",
			Help: "Direct update attempts rejected by the immutability policy",
		}),
		AmendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docvault_amend_duration_seconds",
			Help:    "Duration of Amend operations (supersede + insert + audit)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		HistoryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docvault_history_duration_seconds",
			Help:    "Duration of GetHistory operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveAmend records the duration of an Amend operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveAmend(start time.Time) {
	m.AmendDuration.Observe(time.Since(start).Seconds())
}

// ObserveHistory records the duration of a GetHistory operation.
func (m *Metrics) ObserveHistory(start time.Time) {
	m.HistoryDuration.Observe(time.Since(start).Seconds())
}
