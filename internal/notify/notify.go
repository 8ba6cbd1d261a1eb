// Package notify holds the guardian's outbound collaborators: the advocate
// notification sink, on-device control and the live flag feed.
package notify

import (
	"context"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// Urgency of an advocate notification.
type Urgency string

const (
	UrgencyPriority Urgency = "PRIORITY"
	UrgencyUrgent   Urgency = "URGENT"
	UrgencyCritical Urgency = "CRITICAL"
)

// UrgencyFor maps a flag severity to the advocate urgency.
func UrgencyFor(severity models.Severity) Urgency {
	switch severity {
	case models.SeverityCritical:
		return UrgencyCritical
	case models.SeverityHigh:
		return UrgencyUrgent
	default:
		return UrgencyPriority
	}
}

// AdvocateSink reaches the elder-rights advocate.
type AdvocateSink interface {
	ScheduleReview(ctx context.Context, reason string, urgency Urgency, evidence map[string]any) error
	SendAbuseAlert(ctx context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) error
	// SendEmergencyAlert leaves the location out when it is empty.
	SendEmergencyAlert(ctx context.Context, reason, location string, urgency Urgency) error
}

// DeviceControl issues commands to the elder's launcher.
type DeviceControl interface {
	// NotifyUser shows a discreet notification to the elder.
	NotifyUser(ctx context.Context, message string) error
	RestoreRemovedContacts(ctx context.Context, caregiverID string) error
	ReenableBlockedApps(ctx context.Context, caregiverID string) error
	RevokeFinancialAppAccess(ctx context.Context, caregiverID string) error
	TriggerPanicMode(ctx context.Context, reason string, contacts []*models.ProtectedContact) error
}

// FlagFeed pushes newly raised or resolved flags to live subscribers.
type FlagFeed interface {
	PublishFlag(ctx context.Context, flag *models.AbuseFlag) error
}
