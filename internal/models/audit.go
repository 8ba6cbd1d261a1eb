package models

import "time"

// AuditEvent kind of audited action.
type AuditEvent string

const (
	AuditCaregiverAdded          AuditEvent = "CAREGIVER_ADDED"
	AuditCaregiverAddRejected    AuditEvent = "CAREGIVER_ADD_REJECTED"
	AuditCaregiverRemoved        AuditEvent = "CAREGIVER_REMOVED"
	AuditCaregiverRestricted     AuditEvent = "CAREGIVER_RESTRICTED"
	AuditCaregiverSuspended      AuditEvent = "CAREGIVER_SUSPENDED"
	AuditCaregiverReinstated     AuditEvent = "CAREGIVER_REINSTATED"
	AuditPermissionRequested     AuditEvent = "PERMISSION_REQUESTED"
	AuditPermissionGranted       AuditEvent = "PERMISSION_GRANTED"
	AuditPermissionDenied        AuditEvent = "PERMISSION_DENIED"
	AuditPermissionRevoked       AuditEvent = "PERMISSION_REVOKED"
	AuditAccessAttempted         AuditEvent = "ACCESS_ATTEMPTED"
	AuditConsentReviewed         AuditEvent = "CONSENT_REVIEWED"
	AuditContactRemovalBlocked   AuditEvent = "CONTACT_REMOVAL_BLOCKED"
	AuditContactBlockingBlocked  AuditEvent = "CONTACT_BLOCKING_BLOCKED"
	AuditContactAdditionRequest  AuditEvent = "CONTACT_ADDITION_REQUESTED"
	AuditContactRequestResponded AuditEvent = "CONTACT_REQUEST_RESPONDED"
	AuditContactAdded            AuditEvent = "CONTACT_ADDED"
	AuditContactRemoved          AuditEvent = "CONTACT_REMOVED"
	AuditContactRemovalRefused   AuditEvent = "CONTACT_REMOVAL_REFUSED"
	AuditAbuseFlagRaised         AuditEvent = "ABUSE_FLAG_RAISED"
	AuditAbuseFlagResolved       AuditEvent = "ABUSE_FLAG_RESOLVED"
)

// AuditEntry audit log entry (audit_log table)
// Hash covers every other field, including PreviousHash.
type AuditEntry struct {
	EntryID      string            `json:"entry_id" db:"entry_id"`
	Sequence     int64             `json:"sequence" db:"sequence"`
	Event        AuditEvent        `json:"event" db:"event"`
	CaregiverID  string            `json:"caregiver_id,omitempty" db:"caregiver_id"`
	Actor        string            `json:"actor" db:"actor"`
	Details      map[string]string `json:"details,omitempty" db:"details"` // JSON
	Timestamp    time.Time         `json:"timestamp" db:"timestamp"`
	PreviousHash string            `json:"previous_hash" db:"previous_hash"`
	Hash         string            `json:"hash" db:"hash"`
}

// Audit actors.
const (
	ActorUser     = "user"
	ActorSystem   = "system"
	ActorAdvocate = "advocate"
)

// CaregiverActor formats a caregiver as an audit actor.
func CaregiverActor(caregiverID string) string {
	return "caregiver:" + caregiverID
}
