package models

// Outcome is the result kind of a guarded operation.
type Outcome string

const (
	OutcomeGranted           Outcome = "GRANTED"
	OutcomeDenied            Outcome = "DENIED"
	OutcomeBlocked           Outcome = "BLOCKED"
	OutcomePendingApproval   Outcome = "PENDING_APPROVAL"
	OutcomeNeedsConfirmation Outcome = "NEEDS_CONFIRMATION"
	OutcomeAllowed           Outcome = "ALLOWED"
)

// Decision is returned for consent and authorization checks instead of an error.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`

	// set when the decision produced or referenced a record
	ID           string       `json:"id,omitempty"`
	LocationTier LocationTier `json:"location_tier,omitempty"`
}

// OK reports whether the operation went ahead.
func (d Decision) OK() bool {
	switch d.Outcome {
	case OutcomeGranted, OutcomeAllowed, OutcomePendingApproval:
		return true
	default:
		return false
	}
}

func Granted(reason string) Decision { return Decision{Outcome: OutcomeGranted, Reason: reason} }
func Denied(reason string) Decision  { return Decision{Outcome: OutcomeDenied, Reason: reason} }
func Blocked(reason string) Decision { return Decision{Outcome: OutcomeBlocked, Reason: reason} }
