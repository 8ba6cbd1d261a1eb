package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

func TestExportWorkbook(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	chain := NewChain(mem, zap.NewNop(), WithClock(fixedClock()))

	chain.Record(ctx, models.AuditCaregiverAdded, "cg-1", models.ActorUser, map[string]string{"name": "Anna", "witness": "w-1"})
	chain.Record(ctx, models.AuditContactRemovalBlocked, "cg-1", models.CaregiverActor("cg-1"), nil)
	require.NoError(t, mem.CreateFlag(ctx, &models.AbuseFlag{
		FlagID:       "f-1",
		CaregiverID:  "cg-1",
		FlagType:     models.FlagSocialIsolation,
		Severity:     models.SeverityMedium,
		Description:  "repeated contact removal attempts",
		UserNotified: true,
		CreatedAt:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}))

	var buf bytes.Buffer
	require.NoError(t, ExportWorkbook(ctx, mem.Store(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{auditSheet, flagSheet}, f.GetSheetList())

	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, auditHeader, rows[0])
	assert.Equal(t, "CAREGIVER_ADDED", rows[1][2])
	assert.Equal(t, "name=Anna; witness=w-1", rows[1][5])

	rows, err = f.GetRows(flagSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "SOCIAL_ISOLATION", rows[1][2])
	assert.Equal(t, "Yes", rows[1][8])
}
