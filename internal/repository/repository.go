package repository

import (
	"context"
	"time"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// PermissionsRepo caregiver_permissions table. Records are soft-revoked, never deleted.
type PermissionsRepo interface {
	CreateCaregiver(ctx context.Context, c *models.CaregiverPermissions) error
	GetCaregiver(ctx context.Context, caregiverID string) (*models.CaregiverPermissions, error)
	UpdateCaregiver(ctx context.Context, c *models.CaregiverPermissions) error
	ListCaregivers(ctx context.Context, includeRevoked bool) ([]*models.CaregiverPermissions, error)
}

// BehaviorRepo caregiver_behavior_log table (append-only).
type BehaviorRepo interface {
	AppendBehavior(ctx context.Context, e *models.BehaviorEntry) error
	// CountActions counts entries of any of actionTypes at or after since.
	CountActions(ctx context.Context, caregiverID string, actionTypes []string, since time.Time) (int, error)
	// CountOffHours counts entries at or after since whose hour is >= lateHour or <= earlyHour.
	CountOffHours(ctx context.Context, caregiverID string, since time.Time, lateHour, earlyHour int) (int, error)
	ListBehavior(ctx context.Context, caregiverID string, since time.Time) ([]*models.BehaviorEntry, error)
}

// FlagsRepo abuse_flags table. Flags are resolved, never deleted.
type FlagsRepo interface {
	CreateFlag(ctx context.Context, f *models.AbuseFlag) error
	GetFlag(ctx context.Context, flagID string) (*models.AbuseFlag, error)
	UpdateFlag(ctx context.Context, f *models.AbuseFlag) error
	ListFlags(ctx context.Context, filters models.FlagFilters) ([]*models.AbuseFlag, error)
	// CountUnresolvedBySeverity counts unresolved flags; empty caregiverID means all caregivers.
	CountUnresolvedBySeverity(ctx context.Context, caregiverID string) (map[models.Severity]int, error)
}

// AuditRepo audit_log table (append-only, ordered by sequence).
type AuditRepo interface {
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
	// LastAudit returns nil, nil when the log is empty.
	LastAudit(ctx context.Context) (*models.AuditEntry, error)
	ListAudit(ctx context.Context, afterSequence int64, limit int) ([]*models.AuditEntry, error)
}

// ContactsRepo protected_contacts table.
type ContactsRepo interface {
	CreateContact(ctx context.Context, c *models.ProtectedContact) error
	GetContact(ctx context.Context, contactID string) (*models.ProtectedContact, error)
	UpdateContact(ctx context.Context, c *models.ProtectedContact) error
	// ListContacts returns contacts that have not been removed.
	ListContacts(ctx context.Context, userID string) ([]*models.ProtectedContact, error)
}

// PendingRequestsRepo pending_contact_requests table.
type PendingRequestsRepo interface {
	CreateRequest(ctx context.Context, r *models.PendingContactRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.PendingContactRequest, error)
	UpdateRequest(ctx context.Context, r *models.PendingContactRequest) error
	ListRequests(ctx context.Context, userID string, status models.RequestStatus) ([]*models.PendingContactRequest, error)
}

// Store groups every repository the guardian needs.
type Store struct {
	Permissions PermissionsRepo
	Behavior    BehaviorRepo
	Flags       FlagsRepo
	Audit       AuditRepo
	Contacts    ContactsRepo
	Requests    PendingRequestsRepo
}
