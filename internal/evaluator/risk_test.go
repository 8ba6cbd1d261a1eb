package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name   string
		counts map[models.Severity]int
		want   models.RiskLevel
	}{
		{"none", map[models.Severity]int{}, models.RiskNone},
		{"only low", map[models.Severity]int{models.SeverityLow: 5}, models.RiskNone},
		{"one medium", map[models.Severity]int{models.SeverityMedium: 1}, models.RiskLow},
		{"two medium", map[models.Severity]int{models.SeverityMedium: 2}, models.RiskLow},
		{"three medium", map[models.Severity]int{models.SeverityMedium: 3}, models.RiskMedium},
		{"one high", map[models.Severity]int{models.SeverityHigh: 1}, models.RiskMedium},
		{"two high", map[models.Severity]int{models.SeverityHigh: 2}, models.RiskHigh},
		{"one critical", map[models.Severity]int{models.SeverityCritical: 1}, models.RiskCritical},
		{"critical dominates", map[models.Severity]int{
			models.SeverityCritical: 1, models.SeverityHigh: 0, models.SeverityMedium: 0,
		}, models.RiskCritical},
		{"many high no critical", map[models.Severity]int{models.SeverityHigh: 10, models.SeverityMedium: 10}, models.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessRisk(tt.counts))
		})
	}
}

func TestRiskAssessment_IgnoresResolvedFlags(t *testing.T) {
	te := setupEngine(t)
	ctx := context.Background()

	flag, err := te.engine.RaiseFlag(ctx, "cg-1", models.FlagCommunicationBlocking, models.SeverityCritical, "blocked", nil)
	require.NoError(t, err)

	ra, err := te.engine.RiskAssessment(ctx, "cg-1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskCritical, ra.Level)
	assert.NotEmpty(t, ra.RecommendedActions)

	flag.Resolved = true
	require.NoError(t, te.mem.UpdateFlag(ctx, flag))

	ra, err = te.engine.RiskAssessment(ctx, "cg-1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskNone, ra.Level)
}

func TestRecommendedActions_ReturnsCopy(t *testing.T) {
	a := RecommendedActions(models.RiskHigh)
	a[0] = "changed"
	assert.NotEqual(t, "changed", RecommendedActions(models.RiskHigh)[0])
}
