package evaluator

import (
	"context"
	"strings"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

const (
	criticismThreshold = 3
	controlThreshold   = 5
)

// Matched against the elder's recorded responses.
var criticismKeywords = []string{
	"stupid",
	"useless",
	"worthless",
	"incompetent",
	"can't do anything",
	"confused",
	"senile",
	"burden",
}

// Matched against the caregiver's action types.
var controlKeywords = []string{
	"restrict",
	"block",
	"limit",
	"lock",
	"disable",
	"control",
	"deny",
}

// Action types another rule or the contact guard already scores. They never
// count as control hits, so one action cannot raise two flags.
var scoredElsewhere = map[string]bool{
	models.ActionLocationAccess:          true,
	models.ActionAppMonitoring:           true,
	models.ActionContactRemoved:          true,
	models.ActionSocialAppBlocked:        true,
	models.ActionCommunicationBlocked:    true,
	models.ActionBankingAccess:           true,
	models.ActionPaymentChange:           true,
	models.ActionFinancialSettingsChange: true,
	models.ActionFalseEmergency:          true,
	models.ActionEmergencyBlocked:        true,
	models.ActionSOSManipulation:         true,
	models.ActionContactRemovalBlocked:   true,
	models.ActionContactBlockingBlocked:  true,
}

// psychologicalControlRule scans 7 days of entries for criticism in the elder's
// responses and for controlling action types.
type psychologicalControlRule struct {
	engine *Engine
}

func newPsychologicalControlRule(e *Engine) *psychologicalControlRule {
	return &psychologicalControlRule{engine: e}
}

func (r *psychologicalControlRule) name() string { return "psychological_control" }

func (r *psychologicalControlRule) evaluate(ctx context.Context, caregiverID string) ([]finding, error) {
	entries, err := r.engine.behavior.Entries(ctx, caregiverID, longWindow)
	if err != nil {
		return nil, err
	}

	criticism, control := 0, 0
	for _, e := range entries {
		if containsAny(e.UserResponse, criticismKeywords) {
			criticism++
		}
		if !scoredElsewhere[e.ActionType] && containsAny(e.ActionType, controlKeywords) {
			control++
		}
	}

	if criticism <= criticismThreshold && control <= controlThreshold {
		return nil, nil
	}
	return []finding{{
		flagType:    models.FlagPsychologicalControl,
		severity:    models.SeverityMedium,
		description: "Pattern of criticism or controlling behavior toward the user",
		evidence: map[string]any{
			"criticism_hits":      criticism,
			"criticism_threshold": criticismThreshold,
			"control_hits":        control,
			"control_threshold":   controlThreshold,
			"window_hours":        int(longWindow.Hours()),
		},
		window: longWindow,
	}}, nil
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
