package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FlagRaised("EXCESSIVE_SURVEILLANCE", "HIGH")
	m.FlagRaised("EXCESSIVE_SURVEILLANCE", "HIGH")
	m.ContactAttemptBlocked("remove")
	m.PermissionDecision("financialDataAccess", "DENIED")
	m.EvaluationDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flagsRaised.WithLabelValues("EXCESSIVE_SURVEILLANCE", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contactAttempts.WithLabelValues("remove")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.permissionDecisions.WithLabelValues("financialDataAccess", "DENIED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluationsDropped))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FlagRaised("COERCION", "HIGH")
		m.FlagResolved()
		m.Escalated("CRITICAL")
		m.ContactAttemptBlocked("block")
		m.PermissionDecision("locationAccess", "GRANTED")
		m.EvaluationDropped()
		m.AuditFailed()
	})
}
