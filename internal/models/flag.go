package models

import "time"

// FlagType abuse category.
type FlagType string

const (
	FlagExcessiveSurveillance FlagType = "EXCESSIVE_SURVEILLANCE"
	FlagSocialIsolation       FlagType = "SOCIAL_ISOLATION"
	FlagFinancialManipulation FlagType = "FINANCIAL_MANIPULATION"
	FlagEmergencySystemAbuse  FlagType = "EMERGENCY_SYSTEM_ABUSE"
	FlagPsychologicalControl  FlagType = "PSYCHOLOGICAL_CONTROL"
	FlagCommunicationBlocking FlagType = "COMMUNICATION_BLOCKING"
	FlagPrivacyViolation      FlagType = "PRIVACY_VIOLATION"
	FlagCoercion              FlagType = "COERCION"
)

// Severity of an abuse flag.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities, LOW=1 .. CRITICAL=4.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AbuseFlag abuse flag (abuse_flags table)
// Flags are never deleted, only resolved.
type AbuseFlag struct {
	FlagID      string         `json:"flag_id" db:"flag_id"`
	CaregiverID string         `json:"caregiver_id" db:"caregiver_id"`
	FlagType    FlagType       `json:"flag_type" db:"flag_type"`
	Severity    Severity       `json:"severity" db:"severity"`
	Description string         `json:"description" db:"description"`
	Evidence    map[string]any `json:"evidence" db:"evidence"` // JSON

	Resolved        bool       `json:"resolved" db:"resolved"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy      *string    `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty" db:"resolution_notes"`

	ReportedToAuthorities bool `json:"reported_to_authorities" db:"reported_to_authorities"`
	UserNotified          bool `json:"user_notified" db:"user_notified"`
	AutomaticActionTaken  bool `json:"automatic_action_taken" db:"automatic_action_taken"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FlagFilters list filters for abuse flags.
type FlagFilters struct {
	CaregiverID *string
	Severity    *Severity
	FlagType    *FlagType
	Unresolved  bool
	Since       *time.Time
}

// RiskLevel aggregated abuse risk.
type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskAssessment is a snapshot of unresolved flag counts and the derived risk.
type RiskAssessment struct {
	CaregiverID        string           `json:"caregiver_id,omitempty"`
	Level              RiskLevel        `json:"level"`
	UnresolvedCounts   map[Severity]int `json:"unresolved_counts"`
	RecommendedActions []string         `json:"recommended_actions"`
	AssessedAt         time.Time        `json:"assessed_at"`
}
