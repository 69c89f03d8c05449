// Package metrics exposes engine counters. All methods are nil-safe so wiring
// metrics stays optional in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	transactions    *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	guardViolations prometheus.Counter
	auditFailures   prometheus.Counter
}

// New registers the engine counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "armguard_transactions_total",
			Help: "Committed ledger transactions by action.",
		}, []string{"action"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "armguard_transaction_rejections_total",
			Help: "Rejected transactions by action and reason code.",
		}, []string{"action", "reason"}),
		guardViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "armguard_ledger_guard_violations_total",
			Help: "Writes rejected by the storage-level ledger guard. Should stay at zero.",
		}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "armguard_audit_failures_total",
			Help: "Audit events that could not be persisted.",
		}),
	}
}

func (m *Metrics) TransactionRecorded(action string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(action).Inc()
}

func (m *Metrics) TransactionRejected(action, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(action, reason).Inc()
}

func (m *Metrics) GuardViolation() {
	if m == nil {
		return
	}
	m.guardViolations.Inc()
}

func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}
