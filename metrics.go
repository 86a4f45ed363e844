package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by the indexes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations      *prometheus.CounterVec
	Inconsistencies *prometheus.CounterVec
	SortExecutions  *prometheus.CounterVec
	Documents       *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_operations_total",
				Help:      "Index mutations by index kind and operation.",
			},
			[]string{"index", "op"},
		),
		Inconsistencies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_inconsistencies_total",
				Help:      "Forward/reverse mismatches found while unindexing.",
			},
			[]string{"index"},
		),
		SortExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sort_executions_total",
				Help:      "Sort executions by resolved strategy.",
			},
			[]string{"strategy"},
		),
		Documents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_documents",
				Help:      "Documents currently held in the reverse index.",
			},
			[]string{"index"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Operations, m.Inconsistencies, m.SortExecutions, m.Documents} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeOp(index IndexKind, op string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(string(index), op).Inc()
}

func (m *Metrics) observeInconsistency(index IndexKind) {
	if m == nil {
		return
	}
	m.Inconsistencies.WithLabelValues(string(index)).Inc()
}

func (m *Metrics) observeSort(strategy SortStrategy) {
	if m == nil {
		return
	}
	m.SortExecutions.WithLabelValues(strategy.String()).Inc()
}

func (m *Metrics) setDocuments(index IndexKind, n int) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(string(index)).Set(float64(n))
}
