package evaluator

import (
	"context"
	"strings"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const falseEmergencyThreshold = 2

// emergencyAbuseRule flags tampering with the SOS system over 7 days.
type emergencyAbuseRule struct {
	engine *Engine
}

func newEmergencyAbuseRule(e *Engine) *emergencyAbuseRule {
	return &emergencyAbuseRule{engine: e}
}

func (r *emergencyAbuseRule) name() string { return "emergency_system_abuse" }

func (r *emergencyAbuseRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	count := func(action string) (int, error) {
		return r.engine.behavior.Count(ctx, caregiverID, longWindow, action)
	}

	falseAlarms, err := count(models.ActionFalseEmergency)
	if err != nil {
		return nil, err
	}
	blockedResponses, err := count(models.ActionEmergencyBlocked)
	if err != nil {
		return nil, err
	}
	sosTampering, err := count(models.ActionSOSManipulation)
	if err != nil {
		return nil, err
	}

	var reasons []string
	if falseAlarms > falseEmergencyThreshold {
		reasons = append(reasons, "repeated false emergencies")
	}
	if blockedResponses > 0 {
		reasons = append(reasons, "emergency response blocked")
	}
	if sosTampering > 0 {
		reasons = append(reasons, "SOS settings manipulated")
	}
	if len(reasons) == 0 {
		return nil, nil
	}

	return []finding{{
		flagType:    models.FlagEmergencySystemAbuse,
		severity:    models.SeverityCritical,
		description: "Emergency system abuse: " + strings.Join(reasons, ", "),
		evidence: map[string]any{
			models.ActionFalseEmergency:   falseAlarms,
			models.ActionEmergencyBlocked: blockedResponses,
			models.ActionSOSManipulation:  sosTampering,
			"false_emergency_threshold":   falseEmergencyThreshold,
			"window_hours":                int(longWindow.Hours()),
		},
		window: longWindow,
	}}, nil
}
