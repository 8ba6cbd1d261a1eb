// Package permission is the caregiver permission store: explicit-consent grants,
// one-tap removal and the access checks every caregiver capability goes through.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/audit"
	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

const (
	// ConsentReviewInterval after which a caregiver's consent is stale.
	ConsentReviewInterval = 30 * 24 * time.Hour

	minCommunicationJustification = 50
)

var coercionIndicators = []string{"pressured", "uncomfortable"}

// FlagRaiser is the manual-flag path of the abuse rule engine.
type FlagRaiser interface {
	RaiseFlag(ctx context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) (*models.AbuseFlag, error)
}

// Store guards every caregiver capability.
type Store struct {
	repo    repository.PermissionsRepo
	chain   *audit.Chain
	flags   FlagRaiser
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(repo repository.PermissionsRepo, chain *audit.Chain, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{repo: repo, chain: chain, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFlagRaiser wires the rule engine in after construction; the engine's
// escalation policy depends on this store.
func (s *Store) SetFlagRaiser(r FlagRaiser) {
	s.flags = r
}

// AddCaregiverRequest adds a caregiver with minimal permissions.
type AddCaregiverRequest struct {
	Name        string
	Contact     string
	UserConsent bool
	WitnessID   *string
}

// AddCaregiver creates a caregiver record. Without consent nothing is stored.
func (s *Store) AddCaregiver(ctx context.Context, req AddCaregiverRequest) (models.Decision, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Contact = strings.TrimSpace(req.Contact)
	if req.Name == "" {
		return models.Decision{}, fmt.Errorf("name is required: %w", models.ErrInvalidArgument)
	}

	if !req.UserConsent {
		s.chain.Record(ctx, models.AuditCaregiverAddRejected, "", models.ActorUser, map[string]string{
			"name":   req.Name,
			"reason": "no user consent",
		})
		return models.Denied(models.ErrConsentRequired.Error()), nil
	}

	c := models.NewCaregiverPermissions(uuid.New().String(), req.Name, req.Contact, req.WitnessID, s.now().UTC())
	if err := s.repo.CreateCaregiver(ctx, c); err != nil {
		return models.Decision{}, s.storageError("failed to create caregiver", c.CaregiverID, err)
	}

	details := map[string]string{"name": c.Name}
	if c.WitnessID != nil {
		details["witness_id"] = *c.WitnessID
	}
	s.chain.Record(ctx, models.AuditCaregiverAdded, c.CaregiverID, models.ActorUser, details)
	s.logger.Info("Caregiver added", zap.String("caregiver_id", c.CaregiverID))

	d := models.Granted("caregiver added with minimal permissions")
	d.ID = c.CaregiverID
	return d, nil
}

// PermissionRequest asks for one capability on behalf of a caregiver.
type PermissionRequest struct {
	CaregiverID   string
	Permission    models.Permission
	UserConsent   bool
	Justification string
	WitnessID     *string
}

// RequestPermission grants a single capability when consent and the
// permission's justification rule are satisfied. Financial data access is
// never granted. Location is only ever granted at the emergency-only tier.
func (s *Store) RequestPermission(ctx context.Context, req PermissionRequest) (models.Decision, error) {
	if _, err := models.ParsePermission(string(req.Permission)); err != nil {
		return models.Decision{}, err
	}

	c, err := s.load(ctx, req.CaregiverID)
	if err != nil {
		return models.Decision{}, err
	}

	s.chain.Record(ctx, models.AuditPermissionRequested, c.CaregiverID, models.CaregiverActor(c.CaregiverID), map[string]string{
		"permission":    string(req.Permission),
		"user_consent":  strconv.FormatBool(req.UserConsent),
		"justification": req.Justification,
		"witness_id":    deref(req.WitnessID),
	})

	d := s.decide(c, req)
	if !d.OK() {
		s.metrics.PermissionDecision(string(req.Permission), string(d.Outcome))
		s.chain.Record(ctx, models.AuditPermissionDenied, c.CaregiverID, models.ActorSystem, map[string]string{
			"permission": string(req.Permission),
			"reason":     d.Reason,
		})
		s.logger.Info("Permission denied",
			zap.String("caregiver_id", c.CaregiverID),
			zap.String("permission", string(req.Permission)),
			zap.String("reason", d.Reason),
		)
		return d, nil
	}

	c.Set(req.Permission, true)
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return models.Decision{}, s.storageError("failed to update caregiver", c.CaregiverID, err)
	}

	s.metrics.PermissionDecision(string(req.Permission), string(d.Outcome))
	details := map[string]string{"permission": string(req.Permission)}
	if req.Permission == models.PermissionLocationAccess {
		details["location_tier"] = string(c.LocationAccess)
	}
	s.chain.Record(ctx, models.AuditPermissionGranted, c.CaregiverID, models.ActorUser, details)
	s.logger.Info("Permission granted",
		zap.String("caregiver_id", c.CaregiverID),
		zap.String("permission", string(req.Permission)),
	)
	return d, nil
}

func (s *Store) decide(c *models.CaregiverPermissions, req PermissionRequest) models.Decision {
	switch {
	case !req.UserConsent:
		return models.Denied(models.ErrConsentRequired.Error())
	case !c.Active:
		return models.Denied(models.ErrCaregiverInactive.Error())
	case c.Suspended:
		return models.Denied("caregiver is suspended pending advocate review")
	}

	switch req.Permission {
	case models.PermissionFinancialDataAccess:
		return models.Denied("financial data access is never granted to caregivers")
	case models.PermissionCommunicationAccess:
		if utf8.RuneCountInString(strings.TrimSpace(req.Justification)) < minCommunicationJustification {
			return models.Denied(fmt.Sprintf("communication access needs a justification of at least %d characters", minCommunicationJustification))
		}
	case models.PermissionLocationAccess:
		if !strings.Contains(strings.ToLower(req.Justification), "emergency") {
			return models.Denied("location access is only granted for emergencies")
		}
		d := models.Granted("location shared in emergencies only")
		d.LocationTier = models.LocationEmergencyOnly
		return d
	}
	return models.Granted("permission granted with user consent")
}

// RevokePermission withdraws a single grant. The user may do this at any time.
func (s *Store) RevokePermission(ctx context.Context, caregiverID string, permission models.Permission, actor string) error {
	if _, err := models.ParsePermission(string(permission)); err != nil {
		return err
	}
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return err
	}

	c.Set(permission, false)
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to update caregiver", caregiverID, err)
	}
	s.chain.Record(ctx, models.AuditPermissionRevoked, caregiverID, actor, map[string]string{
		"permission": string(permission),
	})
	return nil
}

// RemoveCaregiver soft-revokes a caregiver. It succeeds for unknown and already
// removed caregivers so the user always has a way out.
func (s *Store) RemoveCaregiver(ctx context.Context, caregiverID, reason string, userInitiated bool) error {
	c, err := s.repo.GetCaregiver(ctx, caregiverID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return s.storageError("failed to get caregiver", caregiverID, err)
	}
	if !c.Active {
		return nil
	}

	now := s.now().UTC()
	c.Active = false
	c.RevokedAt = &now
	c.RevocationReason = &reason
	for _, p := range models.AllPermissions {
		c.Set(p, false)
	}
	c.UpdatedAt = now
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to revoke caregiver", caregiverID, err)
	}

	actor := models.ActorSystem
	if userInitiated {
		actor = models.ActorUser
	}
	s.chain.Record(ctx, models.AuditCaregiverRemoved, caregiverID, actor, map[string]string{"reason": reason})
	s.logger.Info("Caregiver removed",
		zap.String("caregiver_id", caregiverID),
		zap.String("reason", reason),
		zap.Bool("user_initiated", userInitiated),
	)
	return nil
}

// HasPermission reports whether the caregiver may use permission right now.
// Every check is audited. Storage failures deny.
func (s *Store) HasPermission(ctx context.Context, caregiverID string, permission models.Permission) bool {
	granted := false
	c, err := s.repo.GetCaregiver(ctx, caregiverID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("Failed to load caregiver for access check",
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
	}
	if err == nil {
		granted = s.effective(c, permission)
	}

	s.chain.Record(ctx, models.AuditAccessAttempted, caregiverID, models.CaregiverActor(caregiverID), map[string]string{
		"permission": string(permission),
		"granted":    strconv.FormatBool(granted),
	})
	return granted
}

func (s *Store) effective(c *models.CaregiverPermissions, permission models.Permission) bool {
	if !c.Active || permission == models.PermissionFinancialDataAccess {
		return false
	}
	if permission != models.PermissionEmergencyNotifications && (c.Suspended || c.Restricted(s.now())) {
		return false
	}
	return c.Granted(permission)
}

// ConsentReviewRequest is the outcome of a periodic consent check-in with the user.
type ConsentReviewRequest struct {
	CaregiverID string
	UserConsent bool
	WitnessID   *string
	Responses   []string
}

// ConductConsentReview records a consent review. Withholding consent removes the
// caregiver. Responses that mention being pressured or uncomfortable raise a
// coercion flag.
//
// The flag is raised only after the review is persisted: escalating it
// rewrites the caregiver record, and those restrictions must not be
// overwritten by this review.
func (s *Store) ConductConsentReview(ctx context.Context, req ConsentReviewRequest) (models.Decision, error) {
	c, err := s.load(ctx, req.CaregiverID)
	if err != nil {
		return models.Decision{}, err
	}

	indicators := coercionHits(req.Responses)

	if !req.UserConsent {
		if len(indicators) > 0 {
			s.raiseCoercion(ctx, c.CaregiverID, indicators, len(req.Responses))
		}
		if err := s.RemoveCaregiver(ctx, c.CaregiverID, "consent withdrawn at review", true); err != nil {
			return models.Decision{}, err
		}
		return models.Denied("consent withdrawn, caregiver removed"), nil
	}

	c.LastConsentReview = s.now().UTC()
	if req.WitnessID != nil {
		c.WitnessID = req.WitnessID
	}
	c.UpdatedAt = c.LastConsentReview
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return models.Decision{}, s.storageError("failed to update caregiver", c.CaregiverID, err)
	}

	s.chain.Record(ctx, models.AuditConsentReviewed, c.CaregiverID, models.ActorUser, map[string]string{
		"witness_id":          deref(req.WitnessID),
		"coercion_indicators": strings.Join(indicators, ","),
	})
	if len(indicators) > 0 {
		s.raiseCoercion(ctx, c.CaregiverID, indicators, len(req.Responses))
	}
	d := models.Granted("consent reviewed")
	d.ID = c.CaregiverID
	return d, nil
}

func (s *Store) raiseCoercion(ctx context.Context, caregiverID string, indicators []string, responses int) {
	if s.flags == nil {
		s.logger.Error("No flag raiser wired, coercion indicators dropped",
			zap.String("caregiver_id", caregiverID),
			zap.Strings("indicators", indicators),
		)
		return
	}
	_, err := s.flags.RaiseFlag(ctx, caregiverID, models.FlagCoercion, models.SeverityHigh,
		"User reported feeling pressured or uncomfortable during consent review",
		map[string]any{"indicators": indicators, "responses": responses},
	)
	if err != nil {
		s.logger.Error("Failed to raise coercion flag",
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
	}
}

func coercionHits(responses []string) []string {
	var hits []string
	for _, kw := range coercionIndicators {
		for _, r := range responses {
			if strings.Contains(strings.ToLower(r), kw) {
				hits = append(hits, kw)
				break
			}
		}
	}
	return hits
}

// RequiresConsentReview reports whether the caregiver's consent is stale. It
// never affects access.
func (s *Store) RequiresConsentReview(ctx context.Context, caregiverID string) (bool, error) {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return false, err
	}
	return c.ConsentReviewDue(s.now(), ConsentReviewInterval), nil
}

// RestrictTemporarily removes every capability except emergency notifications
// for d.
func (s *Store) RestrictTemporarily(ctx context.Context, caregiverID string, d time.Duration, reason string) error {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	until := now.Add(d)
	c.RestrictedUntil = &until
	c.UpdatedAt = now
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to restrict caregiver", caregiverID, err)
	}

	s.chain.Record(ctx, models.AuditCaregiverRestricted, caregiverID, models.ActorSystem, map[string]string{
		"reason":           reason,
		"restricted_until": until.Format(time.RFC3339),
	})
	s.logger.Warn("Caregiver temporarily restricted",
		zap.String("caregiver_id", caregiverID),
		zap.Time("restricted_until", until),
		zap.String("reason", reason),
	)
	return nil
}

// RestrictSurveillance caps location at emergency-only and reduces monitoring
// frequency.
func (s *Store) RestrictSurveillance(ctx context.Context, caregiverID, reason string) error {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return err
	}

	if c.LocationAccess == models.LocationPrecise || c.LocationAccess == models.LocationApproximate {
		c.LocationAccess = models.LocationEmergencyOnly
	}
	c.MonitoringFrequency = models.MonitoringReduced
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to restrict caregiver", caregiverID, err)
	}

	s.chain.Record(ctx, models.AuditCaregiverRestricted, caregiverID, models.ActorSystem, map[string]string{
		"reason":               reason,
		"location_access":      string(c.LocationAccess),
		"monitoring_frequency": string(c.MonitoringFrequency),
	})
	return nil
}

// RevokeControlGrants revokes remote configuration and communication access.
func (s *Store) RevokeControlGrants(ctx context.Context, caregiverID, reason string) error {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return err
	}

	c.Set(models.PermissionRemoteConfiguration, false)
	c.Set(models.PermissionCommunicationAccess, false)
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to update caregiver", caregiverID, err)
	}

	for _, p := range []models.Permission{models.PermissionRemoteConfiguration, models.PermissionCommunicationAccess} {
		s.chain.Record(ctx, models.AuditPermissionRevoked, caregiverID, models.ActorSystem, map[string]string{
			"permission": string(p),
			"reason":     reason,
		})
	}
	return nil
}

// Suspend blocks every capability except emergency notifications until an
// advocate reinstates the caregiver.
func (s *Store) Suspend(ctx context.Context, caregiverID, reason string) error {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return err
	}

	c.Suspended = true
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to suspend caregiver", caregiverID, err)
	}

	s.chain.Record(ctx, models.AuditCaregiverSuspended, caregiverID, models.ActorSystem, map[string]string{"reason": reason})
	s.logger.Warn("Caregiver suspended",
		zap.String("caregiver_id", caregiverID),
		zap.String("reason", reason),
	)
	return nil
}

// ReinstateCaregiver lifts a suspension and any temporary restriction.
// Removed caregivers cannot be reinstated.
func (s *Store) ReinstateCaregiver(ctx context.Context, caregiverID, actor string) error {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return err
	}
	if !c.Active {
		return fmt.Errorf("caregiver %s: %w", caregiverID, models.ErrCaregiverInactive)
	}

	c.Suspended = false
	c.RestrictedUntil = nil
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCaregiver(ctx, c); err != nil {
		return s.storageError("failed to reinstate caregiver", caregiverID, err)
	}

	s.chain.Record(ctx, models.AuditCaregiverReinstated, caregiverID, actor, nil)
	return nil
}

// CaregiverView is a caregiver record with its review state.
type CaregiverView struct {
	*models.CaregiverPermissions
	ConsentReviewDue bool `json:"consent_review_due"`
	Restricted       bool `json:"restricted"`
}

func (s *Store) view(c *models.CaregiverPermissions) *CaregiverView {
	now := s.now()
	return &CaregiverView{
		CaregiverPermissions: c,
		ConsentReviewDue:     c.Active && c.ConsentReviewDue(now, ConsentReviewInterval),
		Restricted:           c.Restricted(now),
	}
}

func (s *Store) GetCaregiver(ctx context.Context, caregiverID string) (*CaregiverView, error) {
	c, err := s.load(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

func (s *Store) ListCaregivers(ctx context.Context, includeRevoked bool) ([]*CaregiverView, error) {
	list, err := s.repo.ListCaregivers(ctx, includeRevoked)
	if err != nil {
		return nil, s.storageError("failed to list caregivers", "", err)
	}
	out := make([]*CaregiverView, 0, len(list))
	for _, c := range list {
		out = append(out, s.view(c))
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, caregiverID string) (*models.CaregiverPermissions, error) {
	if strings.TrimSpace(caregiverID) == "" {
		return nil, fmt.Errorf("caregiver_id is required: %w", models.ErrInvalidArgument)
	}
	c, err := s.repo.GetCaregiver(ctx, caregiverID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.storageError("failed to get caregiver", caregiverID, err)
	}
	return c, nil
}

func (s *Store) storageError(msg, caregiverID string, err error) error {
	s.logger.Error(msg, zap.String("caregiver_id", caregiverID), zap.Error(err))
	return fmt.Errorf("%s: %w", msg, models.ErrStorage)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
