package models

import "time"

// ProtectionLevel who may change a contact.
type ProtectionLevel string

const (
	ProtectionUserControlled     ProtectionLevel = "USER_CONTROLLED"
	ProtectionSystemProtected    ProtectionLevel = "SYSTEM_PROTECTED"
	ProtectionEmergencyProtected ProtectionLevel = "EMERGENCY_PROTECTED"
	ProtectionAdvocateProtected  ProtectionLevel = "ADVOCATE_PROTECTED"
)

// ProtectedContact protected contact (protected_contacts table)
// Removal is a soft delete (RemovedAt).
type ProtectedContact struct {
	ContactID          string          `json:"contact_id" db:"contact_id"`
	UserID             string          `json:"user_id" db:"user_id"`
	Name               string          `json:"name" db:"name"`
	Phone              string          `json:"phone" db:"phone"`
	Relationship       string          `json:"relationship,omitempty" db:"relationship"`
	ProtectionLevel    ProtectionLevel `json:"protection_level" db:"protection_level"`
	IsEmergencyContact bool            `json:"is_emergency_contact" db:"is_emergency_contact"`
	AddedBy            string          `json:"added_by" db:"added_by"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	RemovedAt          *time.Time      `json:"removed_at,omitempty" db:"removed_at"`
}

// CanBeRemovedByCaregiver is always false.
func (c *ProtectedContact) CanBeRemovedByCaregiver() bool {
	return false
}

// IsAdvocate reports whether this is the elder-rights advocate contact.
func (c *ProtectedContact) IsAdvocate() bool {
	return c.ProtectionLevel == ProtectionAdvocateProtected
}

// RequestStatus pending contact request state.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestExpired   RequestStatus = "EXPIRED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// PendingContactRequest caregiver-proposed contact (pending_contact_requests table)
type PendingContactRequest struct {
	RequestID    string        `json:"request_id" db:"request_id"`
	UserID       string        `json:"user_id" db:"user_id"`
	CaregiverID  string        `json:"caregiver_id" db:"caregiver_id"`
	ContactName  string        `json:"contact_name" db:"contact_name"`
	ContactPhone string        `json:"contact_phone" db:"contact_phone"`
	Relationship string        `json:"relationship,omitempty" db:"relationship"`
	Reason       string        `json:"reason,omitempty" db:"reason"`
	Status       RequestStatus `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	RespondedAt  *time.Time    `json:"responded_at,omitempty" db:"responded_at"`
	ContactID    *string       `json:"contact_id,omitempty" db:"contact_id"`
}
