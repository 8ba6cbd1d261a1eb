package escalation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/notify"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

// PermissionController is the slice of the permission store escalation may
// mutate.
type PermissionController interface {
	// RestrictSurveillance forces location to emergency-only and reduces
	// monitoring frequency.
	RestrictSurveillance(ctx context.Context, caregiverID, reason string) error
	// RevokeControlGrants revokes remote configuration and communication access.
	RevokeControlGrants(ctx context.Context, caregiverID, reason string) error
	Suspend(ctx context.Context, caregiverID, reason string) error
}

// EmergencyContacts resolves the elder's emergency contacts for panic mode.
type EmergencyContacts interface {
	EmergencyContacts(ctx context.Context, userID string) ([]*models.ProtectedContact, error)
}

const userNotice = "We noticed unusual activity from one of your caregivers. " +
	"You can review their access or contact your advocate at any time."

// Policy executes the severity-keyed response to a new flag.
//
//	LOW       persist only
//	MEDIUM    user notification, advocate review (PRIORITY)
//	HIGH      category restriction, advocate alert (URGENT), user notification
//	CRITICAL  emergency alert (CRITICAL), panic mode, caregiver suspended
type Policy struct {
	perms    PermissionController
	contacts EmergencyContacts
	userID   string
	advocate notify.AdvocateSink
	device   notify.DeviceControl
	flags    repository.FlagsRepo
	metrics  *metrics.Metrics
	logger   *zap.Logger
	location string
}

type Option func(*Policy)

// WithLocation sets the elder's address sent with emergency alerts.
func WithLocation(location string) Option {
	return func(p *Policy) {
		p.location = location
	}
}

func NewPolicy(
	perms PermissionController,
	contacts EmergencyContacts,
	userID string,
	advocate notify.AdvocateSink,
	device notify.DeviceControl,
	flags repository.FlagsRepo,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *Policy {
	p := &Policy{
		perms:    perms,
		contacts: contacts,
		userID:   userID,
		advocate: advocate,
		device:   device,
		flags:    flags,
		metrics:  m,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Escalate runs every step for the flag's severity. A failing step does not
// stop the others; their errors are joined. The flag's notification and action
// markers are persisted afterwards.
func (p *Policy) Escalate(ctx context.Context, flag *models.AbuseFlag) error {
	if flag == nil {
		return fmt.Errorf("flag is required: %w", models.ErrInvalidArgument)
	}

	var errs []error
	switch flag.Severity {
	case models.SeverityLow:
		return nil
	case models.SeverityMedium:
		errs = p.escalateMedium(ctx, flag)
	case models.SeverityHigh:
		errs = p.escalateHigh(ctx, flag)
	case models.SeverityCritical:
		errs = p.escalateCritical(ctx, flag)
	default:
		return fmt.Errorf("unknown severity %q: %w", flag.Severity, models.ErrInvalidArgument)
	}
	p.metrics.Escalated(string(flag.Severity))

	if err := p.flags.UpdateFlag(ctx, flag); err != nil {
		errs = append(errs, fmt.Errorf("failed to update flag: %w", err))
	}

	p.logger.Info("Flag escalated",
		zap.String("flag_id", flag.FlagID),
		zap.String("caregiver_id", flag.CaregiverID),
		zap.String("severity", string(flag.Severity)),
		zap.Bool("user_notified", flag.UserNotified),
		zap.Bool("automatic_action_taken", flag.AutomaticActionTaken),
		zap.Bool("reported_to_authorities", flag.ReportedToAuthorities),
		zap.Int("failed_steps", len(errs)),
	)
	return errors.Join(errs...)
}

func (p *Policy) escalateMedium(ctx context.Context, flag *models.AbuseFlag) []error {
	var errs []error
	if err := p.notifyUser(ctx, flag); err != nil {
		errs = append(errs, err)
	}
	if err := p.advocate.ScheduleReview(ctx, flag.Description, notify.UrgencyPriority, flagEvidence(flag)); err != nil {
		errs = append(errs, fmt.Errorf("schedule review: %w", err))
	}
	return errs
}

func (p *Policy) escalateHigh(ctx context.Context, flag *models.AbuseFlag) []error {
	var errs []error
	if err := p.restrict(ctx, flag); err != nil {
		errs = append(errs, err)
	} else {
		flag.AutomaticActionTaken = true
	}
	if err := p.advocate.SendAbuseAlert(ctx, flag.CaregiverID, flag.FlagType, flag.Severity, flag.Description, flagEvidence(flag)); err != nil {
		errs = append(errs, fmt.Errorf("abuse alert: %w", err))
	}
	if err := p.notifyUser(ctx, flag); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (p *Policy) escalateCritical(ctx context.Context, flag *models.AbuseFlag) []error {
	var errs []error

	if err := p.advocate.SendEmergencyAlert(ctx, flag.Description, p.location, notify.UrgencyCritical); err != nil {
		errs = append(errs, fmt.Errorf("emergency alert: %w", err))
	} else {
		flag.ReportedToAuthorities = true
	}

	contacts, err := p.contacts.EmergencyContacts(ctx, p.userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("emergency contacts: %w", err))
	}
	if err := p.device.TriggerPanicMode(ctx, flag.Description, contacts); err != nil {
		errs = append(errs, fmt.Errorf("panic mode: %w", err))
	}

	if err := p.perms.Suspend(ctx, flag.CaregiverID, string(flag.FlagType)); err != nil {
		errs = append(errs, fmt.Errorf("suspend caregiver: %w", err))
	} else {
		flag.AutomaticActionTaken = true
	}
	return errs
}

// restrict applies the HIGH-severity restriction for the flag's category.
func (p *Policy) restrict(ctx context.Context, flag *models.AbuseFlag) error {
	reason := string(flag.FlagType)
	switch flag.FlagType {
	case models.FlagExcessiveSurveillance, models.FlagPrivacyViolation:
		return p.perms.RestrictSurveillance(ctx, flag.CaregiverID, reason)
	case models.FlagSocialIsolation:
		return errors.Join(
			p.device.RestoreRemovedContacts(ctx, flag.CaregiverID),
			p.device.ReenableBlockedApps(ctx, flag.CaregiverID),
		)
	case models.FlagFinancialManipulation:
		return p.device.RevokeFinancialAppAccess(ctx, flag.CaregiverID)
	case models.FlagCoercion, models.FlagPsychologicalControl,
		models.FlagCommunicationBlocking, models.FlagEmergencySystemAbuse:
		return p.perms.RevokeControlGrants(ctx, flag.CaregiverID, reason)
	default:
		return fmt.Errorf("no restriction for flag type %s", flag.FlagType)
	}
}

func (p *Policy) notifyUser(ctx context.Context, flag *models.AbuseFlag) error {
	if err := p.device.NotifyUser(ctx, userNotice); err != nil {
		return fmt.Errorf("notify user: %w", err)
	}
	flag.UserNotified = true
	return nil
}

func flagEvidence(flag *models.AbuseFlag) map[string]any {
	out := make(map[string]any, len(flag.Evidence)+3)
	for k, v := range flag.Evidence {
		out[k] = v
	}
	out["flag_id"] = flag.FlagID
	out["caregiver_id"] = flag.CaregiverID
	out["flag_type"] = string(flag.FlagType)
	return out
}
