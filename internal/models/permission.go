package models

import (
	"fmt"
	"time"
)

// Permission is a closed set of capabilities a caregiver can hold.
type Permission string

const (
	PermissionEmergencyNotifications Permission = "emergencyNotifications"
	PermissionLocationAccess         Permission = "locationAccess"
	PermissionAppUsageMonitoring     Permission = "appUsageMonitoring"
	PermissionRemoteConfiguration    Permission = "remoteConfiguration"
	PermissionCommunicationAccess    Permission = "communicationAccess"
	PermissionHealthDataAccess       Permission = "healthDataAccess"
	PermissionFinancialDataAccess    Permission = "financialDataAccess"
)

// AllPermissions lists every Permission in display order.
var AllPermissions = []Permission{
	PermissionEmergencyNotifications,
	PermissionLocationAccess,
	PermissionAppUsageMonitoring,
	PermissionRemoteConfiguration,
	PermissionCommunicationAccess,
	PermissionHealthDataAccess,
	PermissionFinancialDataAccess,
}

// ParsePermission converts an inbound permission name into a Permission.
func ParsePermission(s string) (Permission, error) {
	for _, p := range AllPermissions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidArgument, s)
}

// HighRisk reports whether granting p needs a written justification.
func (p Permission) HighRisk() bool {
	switch p {
	case PermissionLocationAccess, PermissionCommunicationAccess, PermissionFinancialDataAccess:
		return true
	default:
		return false
	}
}

// LocationTier is the granularity of location a caregiver may see.
type LocationTier string

const (
	LocationNone          LocationTier = "NONE"
	LocationEmergencyOnly LocationTier = "EMERGENCY_ONLY"
	LocationApproximate   LocationTier = "APPROXIMATE"
	LocationPrecise       LocationTier = "PRECISE"
)

// MonitoringFrequency controls how often app usage is sampled for a caregiver.
type MonitoringFrequency string

const (
	MonitoringNormal  MonitoringFrequency = "NORMAL"
	MonitoringReduced MonitoringFrequency = "REDUCED"
)

// CaregiverPermissions caregiver permission record (caregiver_permissions table)
// Financial data access is not stored: it is permanently false.
type CaregiverPermissions struct {
	CaregiverID string `json:"caregiver_id" db:"caregiver_id"`
	Name        string `json:"name" db:"name"`
	Contact     string `json:"contact" db:"contact"`

	EmergencyNotifications bool                `json:"emergency_notifications" db:"emergency_notifications"`
	LocationAccess         LocationTier        `json:"location_access" db:"location_access"`
	AppUsageMonitoring     bool                `json:"app_usage_monitoring" db:"app_usage_monitoring"`
	MonitoringFrequency    MonitoringFrequency `json:"monitoring_frequency" db:"monitoring_frequency"`
	RemoteConfiguration    bool                `json:"remote_configuration" db:"remote_configuration"`
	CommunicationAccess    bool                `json:"communication_access" db:"communication_access"`
	HealthDataAccess       bool                `json:"health_data_access" db:"health_data_access"`

	ConsentTimestamp  time.Time `json:"consent_timestamp" db:"consent_timestamp"`
	WitnessID         *string   `json:"witness_id,omitempty" db:"witness_id"`
	LastConsentReview time.Time `json:"last_consent_review" db:"last_consent_review"`

	Active           bool       `json:"active" db:"active"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	RevocationReason *string    `json:"revocation_reason,omitempty" db:"revocation_reason"`
	Suspended        bool       `json:"suspended" db:"suspended"`
	RestrictedUntil  *time.Time `json:"restricted_until,omitempty" db:"restricted_until"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewCaregiverPermissions builds a record with every grant at its safest value.
func NewCaregiverPermissions(id, name, contact string, witnessID *string, now time.Time) *CaregiverPermissions {
	return &CaregiverPermissions{
		CaregiverID:            id,
		Name:                   name,
		Contact:                contact,
		EmergencyNotifications: true,
		LocationAccess:         LocationNone,
		AppUsageMonitoring:     false,
		MonitoringFrequency:    MonitoringNormal,
		RemoteConfiguration:    false,
		CommunicationAccess:    false,
		HealthDataAccess:       false,
		ConsentTimestamp:       now,
		WitnessID:              witnessID,
		LastConsentReview:      now,
		Active:                 true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// FinancialDataAccess is always false.
func (c *CaregiverPermissions) FinancialDataAccess() bool {
	return false
}

// Granted reports the stored grant for p, ignoring active/restriction state.
func (c *CaregiverPermissions) Granted(p Permission) bool {
	switch p {
	case PermissionEmergencyNotifications:
		return c.EmergencyNotifications
	case PermissionLocationAccess:
		return c.LocationAccess != "" && c.LocationAccess != LocationNone
	case PermissionAppUsageMonitoring:
		return c.AppUsageMonitoring
	case PermissionRemoteConfiguration:
		return c.RemoteConfiguration
	case PermissionCommunicationAccess:
		return c.CommunicationAccess
	case PermissionHealthDataAccess:
		return c.HealthDataAccess
	case PermissionFinancialDataAccess:
		return c.FinancialDataAccess()
	}
	return false
}

// Set writes a grant. Financial data access is ignored.
func (c *CaregiverPermissions) Set(p Permission, granted bool) {
	switch p {
	case PermissionEmergencyNotifications:
		c.EmergencyNotifications = granted
	case PermissionLocationAccess:
		if granted {
			c.LocationAccess = LocationEmergencyOnly
		} else {
			c.LocationAccess = LocationNone
		}
	case PermissionAppUsageMonitoring:
		c.AppUsageMonitoring = granted
	case PermissionRemoteConfiguration:
		c.RemoteConfiguration = granted
	case PermissionCommunicationAccess:
		c.CommunicationAccess = granted
	case PermissionHealthDataAccess:
		c.HealthDataAccess = granted
	case PermissionFinancialDataAccess:
	}
}

// Restricted reports whether a temporary restriction is in force at now.
func (c *CaregiverPermissions) Restricted(now time.Time) bool {
	return c.RestrictedUntil != nil && now.Before(*c.RestrictedUntil)
}

// ConsentReviewDue reports whether interval has elapsed since the last review.
func (c *CaregiverPermissions) ConsentReviewDue(now time.Time, interval time.Duration) bool {
	return !now.Before(c.LastConsentReview.Add(interval))
}
