package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the guardian's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	flagsRaised         *prometheus.CounterVec
	flagsResolved       prometheus.Counter
	escalations         *prometheus.CounterVec
	contactAttempts     *prometheus.CounterVec
	permissionDecisions *prometheus.CounterVec
	evaluationsDropped  prometheus.Counter
	auditFailures       prometheus.Counter
}

// New registers every collector with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		flagsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_abuse_flags_raised_total",
			Help: "Abuse flags raised, by flag type and severity",
		}, []string{"flag_type", "severity"}),
		flagsResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_abuse_flags_resolved_total",
			Help: "Abuse flags resolved by review",
		}),
		escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_escalations_total",
			Help: "Escalation policy executions, by severity",
		}, []string{"severity"}),
		contactAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_contact_attempts_blocked_total",
			Help: "Caregiver contact removal or blocking attempts rejected",
		}, []string{"action"}),
		permissionDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_permission_decisions_total",
			Help: "Permission requests, by permission and outcome",
		}, []string{"permission", "outcome"}),
		evaluationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_evaluations_dropped_total",
			Help: "Abuse evaluations dropped because the worker queue was full",
		}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_audit_append_failures_total",
			Help: "Audit entries that could not be persisted",
		}),
	}
}

func (m *Metrics) FlagRaised(flagType, severity string) {
	if m == nil {
		return
	}
	m.flagsRaised.WithLabelValues(flagType, severity).Inc()
}

func (m *Metrics) FlagResolved() {
	if m == nil {
		return
	}
	m.flagsResolved.Inc()
}

func (m *Metrics) Escalated(severity string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(severity).Inc()
}

func (m *Metrics) ContactAttemptBlocked(action string) {
	if m == nil {
		return
	}
	m.contactAttempts.WithLabelValues(action).Inc()
}

func (m *Metrics) PermissionDecision(permission, outcome string) {
	if m == nil {
		return
	}
	m.permissionDecisions.WithLabelValues(permission, outcome).Inc()
}

func (m *Metrics) EvaluationDropped() {
	if m == nil {
		return
	}
	m.evaluationsDropped.Inc()
}

func (m *Metrics) AuditFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}
