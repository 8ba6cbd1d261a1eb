package evaluator

import (
	"context"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const (
	lateHour          = 23
	earlyHour         = 6
	offHoursThreshold = 3
)

// suspiciousTimingRule flags repeated activity between 23:00 and 06:59 in the
// elder's timezone.
type suspiciousTimingRule struct {
	engine *Engine
}

func newSuspiciousTimingRule(e *Engine) *suspiciousTimingRule {
	return &suspiciousTimingRule{engine: e}
}

func (r *suspiciousTimingRule) name() string { return "suspicious_timing" }

func (r *suspiciousTimingRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	n, err := r.engine.behavior.CountOffHours(ctx, caregiverID, longWindow, lateHour, earlyHour)
	if err != nil {
		return nil, err
	}
	if n <= offHoursThreshold {
		return nil, nil
	}
	return []finding{{
		flagType:    models.FlagPrivacyViolation,
		severity:    models.SeverityMedium,
		description: fmt.Sprintf("%d caregiver actions during night hours in 7 days", n),
		evidence: map[string]any{
			"count":        n,
			"threshold":    offHoursThreshold,
			"late_hour":    lateHour,
			"early_hour":   earlyHour,
			"window_hours": int(longWindow.Hours()),
		},
		window: longWindow,
	}}, nil
}
