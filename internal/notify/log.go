package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// LogAdvocate records advocate notifications in the log only. Used when no
// webhook is configured.
type LogAdvocate struct {
	logger *zap.Logger
}

func NewLogAdvocate(logger *zap.Logger) *LogAdvocate {
	return &LogAdvocate{logger: logger}
}

func (a *LogAdvocate) ScheduleReview(_ context.Context, reason string, urgency Urgency, evidence map[string]any) error {
	a.logger.Warn("Advocate review scheduled",
		zap.String("reason", reason),
		zap.String("urgency", string(urgency)),
		zap.Any("evidence", evidence),
	)
	return nil
}

func (a *LogAdvocate) SendAbuseAlert(_ context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, _ map[string]any) error {
	a.logger.Warn("Advocate abuse alert",
		zap.String("caregiver_id", caregiverID),
		zap.String("flag_type", string(flagType)),
		zap.String("severity", string(severity)),
		zap.String("description", description),
	)
	return nil
}

func (a *LogAdvocate) SendEmergencyAlert(_ context.Context, reason, location string, urgency Urgency) error {
	a.logger.Error("Advocate emergency alert",
		zap.String("reason", reason),
		zap.String("location", location),
		zap.String("urgency", string(urgency)),
	)
	return nil
}

// LogDeviceControl records device commands in the log only.
type LogDeviceControl struct {
	logger *zap.Logger
}

func NewLogDeviceControl(logger *zap.Logger) *LogDeviceControl {
	return &LogDeviceControl{logger: logger}
}

func (d *LogDeviceControl) NotifyUser(_ context.Context, message string) error {
	d.logger.Info("User notification", zap.String("message", message))
	return nil
}

func (d *LogDeviceControl) RestoreRemovedContacts(_ context.Context, caregiverID string) error {
	d.logger.Info("Restore removed contacts", zap.String("caregiver_id", caregiverID))
	return nil
}

func (d *LogDeviceControl) ReenableBlockedApps(_ context.Context, caregiverID string) error {
	d.logger.Info("Re-enable blocked apps", zap.String("caregiver_id", caregiverID))
	return nil
}

func (d *LogDeviceControl) RevokeFinancialAppAccess(_ context.Context, caregiverID string) error {
	d.logger.Info("Revoke financial app access", zap.String("caregiver_id", caregiverID))
	return nil
}

func (d *LogDeviceControl) TriggerPanicMode(_ context.Context, reason string, contacts []*models.ProtectedContact) error {
	d.logger.Error("Panic mode triggered",
		zap.String("reason", reason),
		zap.Int("contacts", len(contacts)),
	)
	return nil
}

// NopFlagFeed discards flags.
type NopFlagFeed struct{}

func (NopFlagFeed) PublishFlag(context.Context, *models.AbuseFlag) error { return nil }
