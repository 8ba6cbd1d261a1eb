package models

import "time"

// Caregiver action types reported by the launcher and OS integrations.
const (
	ActionLocationAccess          = "location_access"
	ActionAppMonitoring           = "app_monitoring"
	ActionContactRemoved          = "contact_removed"
	ActionSocialAppBlocked        = "social_app_blocked"
	ActionCommunicationBlocked    = "communication_blocked"
	ActionBankingAccess           = "banking_access"
	ActionPaymentChange           = "payment_change"
	ActionFinancialSettingsChange = "financial_settings_change"
	ActionFalseEmergency          = "false_emergency"
	ActionEmergencyBlocked        = "emergency_response_blocked"
	ActionSOSManipulation         = "sos_manipulation"

	// recorded by the contact guard
	ActionContactRemovalBlocked  = "contact_removal_blocked"
	ActionContactBlockingBlocked = "contact_blocking_blocked"
)

// BehaviorEntry caregiver behavior log entry (caregiver_behavior_log table)
// Append-only; HourOfDay/DayOfWeek are derived in the elder's timezone.
type BehaviorEntry struct {
	EntryID      string    `json:"entry_id" db:"entry_id"`
	CaregiverID  string    `json:"caregiver_id" db:"caregiver_id"`
	ActionType   string    `json:"action_type" db:"action_type"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Frequency    int       `json:"frequency" db:"frequency"`
	Context      string    `json:"context,omitempty" db:"context"`
	UserResponse string    `json:"user_response,omitempty" db:"user_response"`
	HourOfDay    int       `json:"hour_of_day" db:"hour_of_day"`
	DayOfWeek    int       `json:"day_of_week" db:"day_of_week"`
}
