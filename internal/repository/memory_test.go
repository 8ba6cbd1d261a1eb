package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

func TestMemoryStore_CaregiverCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cg := models.NewCaregiverPermissions("cg-1", "Anna", "anna@example.com", nil, now)
	require.NoError(t, m.CreateCaregiver(ctx, cg))

	// mutating the caller's copy must not leak into the store
	cg.LocationAccess = models.LocationPrecise

	got, err := m.GetCaregiver(ctx, "cg-1")
	require.NoError(t, err)
	assert.Equal(t, models.LocationNone, got.LocationAccess)

	_, err = m.GetCaregiver(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_ListCaregiversExcludesRevoked(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()

	require.NoError(t, m.CreateCaregiver(ctx, models.NewCaregiverPermissions("cg-1", "A", "", nil, now)))
	revoked := models.NewCaregiverPermissions("cg-2", "B", "", nil, now)
	revoked.Active = false
	require.NoError(t, m.CreateCaregiver(ctx, revoked))

	active, err := m.ListCaregivers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := m.ListCaregivers(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore_BehaviorCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	add := func(id, action string, at time.Time) {
		require.NoError(t, m.AppendBehavior(ctx, &models.BehaviorEntry{
			EntryID:     id,
			CaregiverID: "cg-1",
			ActionType:  action,
			Timestamp:   at,
			HourOfDay:   at.Hour(),
		}))
	}
	add("b1", models.ActionLocationAccess, now.Add(-time.Hour))
	add("b2", models.ActionLocationAccess, now.Add(-27*time.Hour))
	add("b3", models.ActionAppMonitoring, now.Add(-2*time.Hour))
	add("b4", models.ActionAppMonitoring, time.Date(2025, 2, 28, 23, 30, 0, 0, time.UTC))

	n, err := m.CountActions(ctx, "cg-1", []string{models.ActionLocationAccess}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.CountActions(ctx, "cg-1", []string{models.ActionLocationAccess, models.ActionAppMonitoring}, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = m.CountOffHours(ctx, "cg-1", now.Add(-7*24*time.Hour), 23, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_FlagFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()

	require.NoError(t, m.CreateFlag(ctx, &models.AbuseFlag{FlagID: "f1", CaregiverID: "cg-1", Severity: models.SeverityHigh, FlagType: models.FlagSocialIsolation, CreatedAt: now}))
	require.NoError(t, m.CreateFlag(ctx, &models.AbuseFlag{FlagID: "f2", CaregiverID: "cg-1", Severity: models.SeverityMedium, FlagType: models.FlagPrivacyViolation, CreatedAt: now}))
	require.NoError(t, m.CreateFlag(ctx, &models.AbuseFlag{FlagID: "f3", CaregiverID: "cg-2", Severity: models.SeverityHigh, FlagType: models.FlagExcessiveSurveillance, Resolved: true, CreatedAt: now}))

	counts, err := m.CountUnresolvedBySeverity(ctx, "cg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.SeverityHigh])
	assert.Equal(t, 1, counts[models.SeverityMedium])

	counts, err = m.CountUnresolvedBySeverity(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.SeverityHigh])

	sev := models.SeverityHigh
	flags, err := m.ListFlags(ctx, models.FlagFilters{Severity: &sev})
	require.NoError(t, err)
	assert.Len(t, flags, 2)

	flags, err = m.ListFlags(ctx, models.FlagFilters{Severity: &sev, Unresolved: true})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "f1", flags[0].FlagID)
}

func TestMemoryStore_AuditOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	last, err := m.LastAudit(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, m.AppendAudit(ctx, &models.AuditEntry{EntryID: "a", Sequence: i}))
	}
	last, err = m.LastAudit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Sequence)

	entries, err := m.ListAudit(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Sequence)
}

func TestMemoryStore_ContactsSkipRemoved(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()

	require.NoError(t, m.CreateContact(ctx, &models.ProtectedContact{ContactID: "c1", UserID: "elder-1", CreatedAt: now}))
	require.NoError(t, m.CreateContact(ctx, &models.ProtectedContact{ContactID: "c2", UserID: "elder-1", CreatedAt: now, RemovedAt: &now}))

	contacts, err := m.ListContacts(ctx, "elder-1")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c1", contacts[0].ContactID)
}
