// Package contacts protects the elder's contact list from caregiver tampering.
//
// Caregivers can never remove or block a contact and can only propose new ones
// for the user to approve. Repeated tampering attempts are treated as an abuse
// signal.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/audit"
	"github.com/posdenous/naviya-launcher-sub002/internal/behavior"
	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

const (
	attemptWindow    = time.Hour
	flagAttempts     = 3
	restrictAttempts = 5
	restrictDuration = 24 * time.Hour
	RequestTTL       = 7 * 24 * time.Hour
)

// FlagRaiser is the manual-flag path of the abuse rule engine.
type FlagRaiser interface {
	RaiseFlag(ctx context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) (*models.AbuseFlag, error)
}

// Restrictor temporarily restricts a caregiver's permissions.
type Restrictor interface {
	RestrictTemporarily(ctx context.Context, caregiverID string, d time.Duration, reason string) error
}

// Guard is the contact protection policy for one elder.
type Guard struct {
	userID     string
	contacts   repository.ContactsRepo
	dir        *Directory
	requests   repository.PendingRequestsRepo
	caregivers repository.PermissionsRepo
	log        *behavior.Log
	chain      *audit.Chain
	flags      FlagRaiser
	restrictor Restrictor
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Guard)

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

func NewGuard(
	userID string,
	store *repository.Store,
	log *behavior.Log,
	chain *audit.Chain,
	flags FlagRaiser,
	restrictor Restrictor,
	logger *zap.Logger,
	opts ...Option,
) *Guard {
	g := &Guard{
		userID:     userID,
		contacts:   store.Contacts,
		dir:        NewDirectory(store.Contacts),
		requests:   store.Requests,
		caregivers: store.Permissions,
		log:        log,
		chain:      chain,
		flags:      flags,
		restrictor: restrictor,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SystemContacts are seeded into every contact list and are never removable by
// caregivers.
type SystemContacts struct {
	AdvocateName    string
	AdvocatePhone   string
	EmergencyNumber string
}

// EnsureSystemContacts adds the elder-rights advocate and emergency services
// contacts when they are missing.
func (g *Guard) EnsureSystemContacts(ctx context.Context, sc SystemContacts) error {
	existing, err := g.contacts.ListContacts(ctx, g.userID)
	if err != nil {
		return g.storageError("failed to list contacts", err)
	}

	hasAdvocate, hasEmergency := false, false
	for _, c := range existing {
		switch c.ProtectionLevel {
		case models.ProtectionAdvocateProtected:
			hasAdvocate = true
		case models.ProtectionEmergencyProtected:
			hasEmergency = true
		}
	}

	now := g.now().UTC()
	var seed []*models.ProtectedContact
	if !hasEmergency && sc.EmergencyNumber != "" {
		seed = append(seed, &models.ProtectedContact{
			ContactID:          uuid.New().String(),
			UserID:             g.userID,
			Name:               "Emergency Services",
			Phone:              sc.EmergencyNumber,
			Relationship:       "emergency",
			ProtectionLevel:    models.ProtectionEmergencyProtected,
			IsEmergencyContact: true,
			AddedBy:            models.ActorSystem,
			CreatedAt:          now,
		})
	}
	if !hasAdvocate && sc.AdvocatePhone != "" {
		seed = append(seed, &models.ProtectedContact{
			ContactID:       uuid.New().String(),
			UserID:          g.userID,
			Name:            sc.AdvocateName,
			Phone:           sc.AdvocatePhone,
			Relationship:    "elder rights advocate",
			ProtectionLevel: models.ProtectionAdvocateProtected,
			AddedBy:         models.ActorSystem,
			CreatedAt:       now,
		})
	}

	for _, c := range seed {
		if err := g.contacts.CreateContact(ctx, c); err != nil {
			return g.storageError("failed to create contact", err)
		}
		g.chain.Record(ctx, models.AuditContactAdded, "", models.ActorSystem, map[string]string{
			"contact_id":       c.ContactID,
			"protection_level": string(c.ProtectionLevel),
		})
		g.logger.Info("System contact seeded",
			zap.String("contact_id", c.ContactID),
			zap.String("protection_level", string(c.ProtectionLevel)),
		)
	}
	return nil
}

// BlockContactRemoval rejects a caregiver's attempt to remove a contact. The
// contact is never touched.
func (g *Guard) BlockContactRemoval(ctx context.Context, caregiverID, contactID string) models.Decision {
	return g.block(ctx, caregiverID, contactID, models.ActionContactRemovalBlocked, models.AuditContactRemovalBlocked)
}

// BlockContactBlocking rejects a caregiver's attempt to block a contact.
func (g *Guard) BlockContactBlocking(ctx context.Context, caregiverID, contactID string) models.Decision {
	return g.block(ctx, caregiverID, contactID, models.ActionContactBlockingBlocked, models.AuditContactBlockingBlocked)
}

func (g *Guard) block(ctx context.Context, caregiverID, contactID, action string, event models.AuditEvent) models.Decision {
	g.metrics.ContactAttemptBlocked(action)
	g.chain.Record(ctx, event, caregiverID, models.CaregiverActor(caregiverID), map[string]string{
		"contact_id": contactID,
	})
	g.logger.Warn("Caregiver contact change blocked",
		zap.String("caregiver_id", caregiverID),
		zap.String("contact_id", contactID),
		zap.String("action", action),
	)

	if _, err := g.log.Record(ctx, caregiverID, action, contactID, ""); err != nil {
		g.logger.Error("Failed to record blocked attempt",
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
	} else {
		g.checkAttempts(ctx, caregiverID)
	}

	return models.Blocked("caregivers cannot remove or block contacts")
}

// checkAttempts raises a flag when the rolling hour reaches three blocked
// attempts and restricts the caregiver from the fifth on.
func (g *Guard) checkAttempts(ctx context.Context, caregiverID string) {
	n, err := g.log.Count(ctx, caregiverID, attemptWindow, models.ActionContactRemovalBlocked, models.ActionContactBlockingBlocked)
	if err != nil {
		g.logger.Error("Failed to count blocked attempts",
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
		return
	}

	if n == flagAttempts {
		_, err := g.flags.RaiseFlag(ctx, caregiverID, models.FlagSocialIsolation, models.SeverityMedium,
			fmt.Sprintf("%d attempts to remove or block contacts within one hour", n),
			map[string]any{"attempts": n, "window_minutes": int(attemptWindow.Minutes())},
		)
		if err != nil {
			g.logger.Error("Failed to raise contact tampering flag",
				zap.String("caregiver_id", caregiverID),
				zap.Error(err),
			)
		}
	}

	if n >= restrictAttempts {
		reason := fmt.Sprintf("%d blocked contact changes within one hour", n)
		if err := g.restrictor.RestrictTemporarily(ctx, caregiverID, restrictDuration, reason); err != nil {
			g.logger.Error("Failed to restrict caregiver",
				zap.String("caregiver_id", caregiverID),
				zap.Error(err),
			)
		}
	}
}

// ContactAdditionRequest is a caregiver's proposal for a new contact.
type ContactAdditionRequest struct {
	CaregiverID  string
	Name         string
	Phone        string
	Relationship string
	Reason       string
}

// RequestContactAddition queues a caregiver-proposed contact for the user's
// approval. It is never added directly.
func (g *Guard) RequestContactAddition(ctx context.Context, req ContactAdditionRequest) (models.Decision, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return models.Decision{}, fmt.Errorf("name and phone are required: %w", models.ErrInvalidArgument)
	}

	cg, err := g.caregivers.GetCaregiver(ctx, req.CaregiverID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Decision{}, err
	}
	if err != nil {
		return models.Decision{}, g.storageError("failed to get caregiver", err)
	}
	if !cg.Active || cg.Suspended {
		return models.Denied(models.ErrCaregiverInactive.Error()), nil
	}

	r := &models.PendingContactRequest{
		RequestID:    uuid.New().String(),
		UserID:       g.userID,
		CaregiverID:  req.CaregiverID,
		ContactName:  req.Name,
		ContactPhone: req.Phone,
		Relationship: req.Relationship,
		Reason:       req.Reason,
		Status:       models.RequestPending,
		CreatedAt:    g.now().UTC(),
	}
	if err := g.requests.CreateRequest(ctx, r); err != nil {
		return models.Decision{}, g.storageError("failed to create contact request", err)
	}

	g.chain.Record(ctx, models.AuditContactAdditionRequest, req.CaregiverID, models.CaregiverActor(req.CaregiverID), map[string]string{
		"request_id": r.RequestID,
		"name":       r.ContactName,
	})
	return models.Decision{
		Outcome: models.OutcomePendingApproval,
		Reason:  "waiting for the user to approve the new contact",
		ID:      r.RequestID,
	}, nil
}

// RespondToPendingRequest approves or rejects a caregiver's proposal. Approval
// creates a user-controlled contact.
func (g *Guard) RespondToPendingRequest(ctx context.Context, requestID string, approve bool) (models.Decision, error) {
	r, err := g.pending(ctx, requestID)
	if err != nil {
		return models.Decision{}, err
	}

	now := g.now().UTC()
	if now.Sub(r.CreatedAt) >= RequestTTL {
		if err := g.closeRequest(ctx, r, models.RequestExpired, now); err != nil {
			return models.Decision{}, err
		}
		return models.Decision{}, fmt.Errorf("request %s expired: %w", requestID, models.ErrRequestNotPending)
	}

	if !approve {
		if err := g.closeRequest(ctx, r, models.RequestRejected, now); err != nil {
			return models.Decision{}, err
		}
		return models.Denied("contact request rejected"), nil
	}

	c := &models.ProtectedContact{
		ContactID:       uuid.New().String(),
		UserID:          r.UserID,
		Name:            r.ContactName,
		Phone:           r.ContactPhone,
		Relationship:    r.Relationship,
		ProtectionLevel: models.ProtectionUserControlled,
		AddedBy:         models.CaregiverActor(r.CaregiverID),
		CreatedAt:       now,
	}
	if err := g.contacts.CreateContact(ctx, c); err != nil {
		return models.Decision{}, g.storageError("failed to create contact", err)
	}
	r.ContactID = &c.ContactID
	if err := g.closeRequest(ctx, r, models.RequestApproved, now); err != nil {
		return models.Decision{}, err
	}
	g.chain.Record(ctx, models.AuditContactAdded, r.CaregiverID, models.ActorUser, map[string]string{
		"contact_id": c.ContactID,
		"request_id": r.RequestID,
	})

	d := models.Granted("contact added")
	d.ID = c.ContactID
	return d, nil
}

// CancelPendingRequest withdraws a proposal. Only the proposing caregiver may
// cancel it.
func (g *Guard) CancelPendingRequest(ctx context.Context, requestID, caregiverID string) error {
	r, err := g.pending(ctx, requestID)
	if err != nil {
		return err
	}
	if r.CaregiverID != caregiverID {
		return fmt.Errorf("request %s belongs to another caregiver: %w", requestID, models.ErrInvalidArgument)
	}
	return g.closeRequest(ctx, r, models.RequestCancelled, g.now().UTC())
}

// ExpirePendingRequests closes every pending request older than RequestTTL.
func (g *Guard) ExpirePendingRequests(ctx context.Context) (int, error) {
	list, err := g.requests.ListRequests(ctx, g.userID, models.RequestPending)
	if err != nil {
		return 0, g.storageError("failed to list contact requests", err)
	}

	now := g.now().UTC()
	expired := 0
	for _, r := range list {
		if now.Sub(r.CreatedAt) < RequestTTL {
			continue
		}
		if err := g.closeRequest(ctx, r, models.RequestExpired, now); err != nil {
			return expired, err
		}
		expired++
	}
	if expired > 0 {
		g.logger.Info("Contact requests expired", zap.Int("count", expired))
	}
	return expired, nil
}

func (g *Guard) ListPendingRequests(ctx context.Context) ([]*models.PendingContactRequest, error) {
	list, err := g.requests.ListRequests(ctx, g.userID, models.RequestPending)
	if err != nil {
		return nil, g.storageError("failed to list contact requests", err)
	}
	return list, nil
}

func (g *Guard) pending(ctx context.Context, requestID string) (*models.PendingContactRequest, error) {
	r, err := g.requests.GetRequest(ctx, requestID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, g.storageError("failed to get contact request", err)
	}
	if r.Status != models.RequestPending {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, r.Status, models.ErrRequestNotPending)
	}
	return r, nil
}

func (g *Guard) closeRequest(ctx context.Context, r *models.PendingContactRequest, status models.RequestStatus, now time.Time) error {
	r.Status = status
	r.RespondedAt = &now
	if err := g.requests.UpdateRequest(ctx, r); err != nil {
		return g.storageError("failed to update contact request", err)
	}
	g.chain.Record(ctx, models.AuditContactRequestResponded, r.CaregiverID, models.ActorUser, map[string]string{
		"request_id": r.RequestID,
		"status":     string(status),
	})
	return nil
}

// UserContact is a contact the elder adds directly.
type UserContact struct {
	Name         string
	Phone        string
	Relationship string
	Emergency    bool
}

// UserAddContact is always allowed.
func (g *Guard) UserAddContact(ctx context.Context, uc UserContact) (models.Decision, error) {
	uc.Name = strings.TrimSpace(uc.Name)
	uc.Phone = strings.TrimSpace(uc.Phone)
	if uc.Name == "" || uc.Phone == "" {
		return models.Decision{}, fmt.Errorf("name and phone are required: %w", models.ErrInvalidArgument)
	}

	c := &models.ProtectedContact{
		ContactID:          uuid.New().String(),
		UserID:             g.userID,
		Name:               uc.Name,
		Phone:              uc.Phone,
		Relationship:       uc.Relationship,
		ProtectionLevel:    models.ProtectionUserControlled,
		IsEmergencyContact: uc.Emergency,
		AddedBy:            models.ActorUser,
		CreatedAt:          g.now().UTC(),
	}
	if err := g.contacts.CreateContact(ctx, c); err != nil {
		return models.Decision{}, g.storageError("failed to create contact", err)
	}
	g.chain.Record(ctx, models.AuditContactAdded, "", models.ActorUser, map[string]string{
		"contact_id": c.ContactID,
		"emergency":  strconv.FormatBool(c.IsEmergencyContact),
	})
	return models.Decision{Outcome: models.OutcomeAllowed, Reason: "contact added", ID: c.ContactID}, nil
}

// UserRemoveContact removes a contact for the elder. Removing the advocate needs
// confirmed=true. The last emergency contact cannot be removed.
func (g *Guard) UserRemoveContact(ctx context.Context, contactID string, confirmed bool) (models.Decision, error) {
	c, err := g.contacts.GetContact(ctx, contactID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Decision{}, err
	}
	if err != nil {
		return models.Decision{}, g.storageError("failed to get contact", err)
	}
	if c.RemovedAt != nil {
		return models.Decision{Outcome: models.OutcomeAllowed, Reason: "contact already removed", ID: contactID}, nil
	}

	if c.IsAdvocate() && !confirmed {
		return models.Decision{
			Outcome: models.OutcomeNeedsConfirmation,
			Reason:  "this is your elder rights advocate, who can help if a caregiver mistreats you. Remove anyway?",
			ID:      contactID,
		}, nil
	}

	if c.IsEmergencyContact {
		remaining, err := g.EmergencyContacts(ctx, c.UserID)
		if err != nil {
			return models.Decision{}, err
		}
		if len(remaining) <= 1 {
			g.chain.Record(ctx, models.AuditContactRemovalRefused, "", models.ActorUser, map[string]string{
				"contact_id": contactID,
				"reason":     "last emergency contact",
			})
			return models.Decision{}, models.ErrLastEmergencyContact
		}
	}

	now := g.now().UTC()
	c.RemovedAt = &now
	if err := g.contacts.UpdateContact(ctx, c); err != nil {
		return models.Decision{}, g.storageError("failed to remove contact", err)
	}
	g.chain.Record(ctx, models.AuditContactRemoved, "", models.ActorUser, map[string]string{
		"contact_id":       contactID,
		"protection_level": string(c.ProtectionLevel),
	})
	return models.Decision{Outcome: models.OutcomeAllowed, Reason: "contact removed", ID: contactID}, nil
}

// EmergencyContacts lists the elder's current emergency contacts.
func (g *Guard) EmergencyContacts(ctx context.Context, userID string) ([]*models.ProtectedContact, error) {
	list, err := g.dir.EmergencyContacts(ctx, userID)
	if err != nil {
		return nil, g.storageError("failed to list emergency contacts", err)
	}
	return list, nil
}

func (g *Guard) ListContacts(ctx context.Context) ([]*models.ProtectedContact, error) {
	list, err := g.contacts.ListContacts(ctx, g.userID)
	if err != nil {
		return nil, g.storageError("failed to list contacts", err)
	}
	return list, nil
}

func (g *Guard) storageError(msg string, err error) error {
	g.logger.Error(msg, zap.String("user_id", g.userID), zap.Error(err))
	return fmt.Errorf("%s: %w", msg, models.ErrStorage)
}
