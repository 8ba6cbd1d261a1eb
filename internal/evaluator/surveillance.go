package evaluator

import (
	"context"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const (
	locationAccessThreshold = 20
	appMonitoringThreshold  = 16
)

// surveillanceRule flags excessive location checks and app monitoring over 24h.
type surveillanceRule struct {
	engine *Engine
}

func newSurveillanceRule(e *Engine) *surveillanceRule {
	return &surveillanceRule{engine: e}
}

func (r *surveillanceRule) name() string { return "excessive_surveillance" }

func (r *surveillanceRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	var out []finding

	locations, err := r.engine.behavior.Count(ctx, caregiverID, shortWindow, models.ActionLocationAccess)
	if err != nil {
		return nil, err
	}
	if locations > locationAccessThreshold {
		out = append(out, finding{
			flagType:    models.FlagExcessiveSurveillance,
			severity:    models.SeverityHigh,
			description: fmt.Sprintf("Location accessed %d times in 24 hours (limit %d)", locations, locationAccessThreshold),
			evidence:    countEvidence(models.ActionLocationAccess, locations, locationAccessThreshold, shortWindow),
			window:      shortWindow,
		})
	}

	monitoring, err := r.engine.behavior.Count(ctx, caregiverID, shortWindow, models.ActionAppMonitoring)
	if err != nil {
		return nil, err
	}
	if monitoring > appMonitoringThreshold {
		out = append(out, finding{
			flagType:    models.FlagExcessiveSurveillance,
			severity:    models.SeverityMedium,
			description: fmt.Sprintf("App usage checked %d times in 24 hours (limit %d)", monitoring, appMonitoringThreshold),
			evidence:    countEvidence(models.ActionAppMonitoring, monitoring, appMonitoringThreshold, shortWindow),
			window:      shortWindow,
		})
	}
	return out, nil
}
