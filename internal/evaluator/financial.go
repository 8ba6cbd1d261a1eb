package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

var financialActions = []string{
	models.ActionBankingAccess,
	models.ActionPaymentChange,
	models.ActionFinancialSettingsChange,
}

// financialRule: any banking, payment or financial settings activity in 7 days
// is critical.
type financialRule struct {
	engine *Engine
}

func newFinancialRule(e *Engine) *financialRule {
	return &financialRule{engine: e}
}

func (r *financialRule) name() string { return "financial_manipulation" }

func (r *financialRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	evidence := map[string]any{"window_hours": int(longWindow.Hours())}
	var seen []string
	for _, action := range financialActions {
		n, err := r.engine.behavior.Count(ctx, caregiverID, longWindow, action)
		if err != nil {
			return nil, err
		}
		evidence[action] = n
		if n > 0 {
			seen = append(seen, action)
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}
	return []finding{{
		flagType:    models.FlagFinancialManipulation,
		severity:    models.SeverityCritical,
		description: fmt.Sprintf("Caregiver financial activity detected: %s", strings.Join(seen, ", ")),
		evidence:    evidence,
		window:      longWindow,
	}}, nil
}
