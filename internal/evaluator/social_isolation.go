package evaluator

import (
	"context"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const (
	contactRemovedThreshold   = 3
	socialAppBlockedThreshold = 2
)

// socialIsolationRule flags contact removal and social app blocking over 7 days.
type socialIsolationRule struct {
	engine *Engine
}

func newSocialIsolationRule(e *Engine) *socialIsolationRule {
	return &socialIsolationRule{engine: e}
}

func (r *socialIsolationRule) name() string { return "social_isolation" }

func (r *socialIsolationRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	var out []finding

	removed, err := r.engine.behavior.Count(ctx, caregiverID, longWindow, models.ActionContactRemoved)
	if err != nil {
		return nil, err
	}
	if removed > contactRemovedThreshold {
		out = append(out, finding{
			flagType:    models.FlagSocialIsolation,
			severity:    models.SeverityHigh,
			description: fmt.Sprintf("%d contacts removed in 7 days", removed),
			evidence:    countEvidence(models.ActionContactRemoved, removed, contactRemovedThreshold, longWindow),
			window:      longWindow,
		})
	}

	blocked, err := r.engine.behavior.Count(ctx, caregiverID, longWindow, models.ActionSocialAppBlocked)
	if err != nil {
		return nil, err
	}
	if blocked > socialAppBlockedThreshold {
		out = append(out, finding{
			flagType:    models.FlagSocialIsolation,
			severity:    models.SeverityMedium,
			description: fmt.Sprintf("%d social apps blocked in 7 days", blocked),
			evidence:    countEvidence(models.ActionSocialAppBlocked, blocked, socialAppBlockedThreshold, longWindow),
			window:      longWindow,
		})
	}
	return out, nil
}
