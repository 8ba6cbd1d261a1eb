package evaluator

import (
	"context"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

var recommendedActions = map[models.RiskLevel][]string{
	models.RiskNone: {
		"Continue routine monitoring",
	},
	models.RiskLow: {
		"Review flagged activity with the user at the next consent review",
		"Continue routine monitoring",
	},
	models.RiskMedium: {
		"Schedule an advocate review",
		"Discuss caregiver activity privately with the user",
		"Consider reducing caregiver permissions",
	},
	models.RiskHigh: {
		"Restrict caregiver permissions",
		"Contact the elder rights advocate",
		"Offer the user one-tap caregiver removal",
	},
	models.RiskCritical: {
		"Suspend all caregiver access",
		"Contact emergency services or adult protective services",
		"Ensure the user is safe and has access to emergency contacts",
	},
}

// AssessRisk maps unresolved flag counts to a risk level.
func AssessRisk(counts map[models.Severity]int) models.RiskLevel {
	switch {
	case counts[models.SeverityCritical] > 0:
		return models.RiskCritical
	case counts[models.SeverityHigh] > 1:
		return models.RiskHigh
	case counts[models.SeverityHigh] >= 1 || counts[models.SeverityMedium] > 2:
		return models.RiskMedium
	case counts[models.SeverityMedium] > 0:
		return models.RiskLow
	default:
		return models.RiskNone
	}
}

// RecommendedActions returns the static action list for level.
func RecommendedActions(level models.RiskLevel) []string {
	actions := recommendedActions[level]
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// RiskAssessment counts unresolved flags for the caregiver, or for every
// caregiver when caregiverID is empty.
func (e *Engine) RiskAssessment(ctx context.Context, caregiverID string) (*models.RiskAssessment, error) {
	counts, err := e.flags.CountUnresolvedBySeverity(ctx, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unresolved flags: %w", err)
	}
	level := AssessRisk(counts)
	return &models.RiskAssessment{
		CaregiverID:        caregiverID,
		Level:              level,
		UnresolvedCounts:   counts,
		RecommendedActions: RecommendedActions(level),
		AssessedAt:         e.now(),
	}, nil
}
