package evaluator

import (
	"context"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// communicationRule: any blocked communication in 7 days is critical.
type communicationRule struct {
	engine *Engine
}

func newCommunicationRule(e *Engine) *communicationRule {
	return &communicationRule{engine: e}
}

func (r *communicationRule) name() string { return "communication_blocking" }

func (r *communicationRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	blocked, err := r.engine.behavior.Count(ctx, caregiverID, longWindow, models.ActionCommunicationBlocked)
	if err != nil {
		return nil, err
	}
	if blocked == 0 {
		return nil, nil
	}
	return []finding{{
		flagType:    models.FlagCommunicationBlocking,
		severity:    models.SeverityCritical,
		description: fmt.Sprintf("Communication blocked %d times in 7 days", blocked),
		evidence:    countEvidence(models.ActionCommunicationBlocked, blocked, 0, longWindow),
		window:      longWindow,
	}}, nil
}
