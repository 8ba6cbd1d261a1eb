package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestChain_TamperEvidence(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	chain := NewChain(mem, zap.NewNop(), WithClock(fixedClock()))

	e1, err := chain.Append(ctx, models.AuditCaregiverAdded, "cg-1", models.ActorUser, map[string]string{"name": "Anna"})
	require.NoError(t, err)
	assert.Empty(t, e1.PreviousHash)
	assert.Equal(t, int64(1), e1.Sequence)

	e2, err := chain.Append(ctx, models.AuditPermissionGranted, "cg-1", models.ActorUser, map[string]string{"permission": "locationAccess"})
	require.NoError(t, err)
	assert.Equal(t, e1.Hash, e2.PreviousHash)

	e3, err := chain.Append(ctx, models.AuditAccessAttempted, "cg-1", models.CaregiverActor("cg-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, e2.Hash, e3.PreviousHash)
	assert.Equal(t, int64(3), e3.Sequence)

	report, err := chain.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, int64(3), report.Entries)

	// content tampering
	mem.TamperAudit(2, func(e *models.AuditEntry) {
		e.Details = map[string]string{"permission": "financialDataAccess"}
	})
	report, err = chain.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(2), report.BrokenAt)
	assert.Contains(t, report.Reason, "integrity failure")

	// restore content, break the link
	mem.TamperAudit(2, func(e *models.AuditEntry) {
		e.Details = map[string]string{"permission": "locationAccess"}
	})
	mem.TamperAudit(3, func(e *models.AuditEntry) { e.PreviousHash = "deadbeef" })
	report, err = chain.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(3), report.BrokenAt)
	assert.Equal(t, "previous hash mismatch", report.Reason)
}

func TestChain_EmptyIsValid(t *testing.T) {
	chain := NewChain(repository.NewMemoryStore(), zap.NewNop())
	report, err := chain.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Zero(t, report.Entries)
}

func TestComputeHash_NilAndEmptyDetailsMatch(t *testing.T) {
	e := &models.AuditEntry{EntryID: "a", Sequence: 1, Event: models.AuditCaregiverRemoved, Timestamp: time.Unix(0, 0)}
	h1, err := ComputeHash(e)
	require.NoError(t, err)

	e.Details = map[string]string{}
	h2, err := ComputeHash(e)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

type failingAuditRepo struct {
	repository.AuditRepo
}

func (failingAuditRepo) LastAudit(context.Context) (*models.AuditEntry, error) {
	return nil, errors.New("disk full")
}

func TestChain_RecordSwallowsFailures(t *testing.T) {
	chain := NewChain(failingAuditRepo{}, zap.NewNop())
	e := chain.Record(context.Background(), models.AuditCaregiverAdded, "cg-1", models.ActorUser, nil)
	assert.Nil(t, e)
}

func TestChain_RecordFailureCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	chain := NewChain(failingAuditRepo{}, zap.NewNop(), WithMetrics(metrics.New(reg)))
	chain.Record(context.Background(), models.AuditAccessAttempted, "cg-1", models.ActorSystem, nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range families {
		if mf.GetName() == "guardian_audit_append_failures_total" {
			failures = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, failures)
}
