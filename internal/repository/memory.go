package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// MemoryStore keeps every table in process memory.
// Used by tests and by `serve` when no database is configured. Records are
// copied in and out so callers never share pointers with the store.
type MemoryStore struct {
	mu sync.RWMutex

	caregivers map[string]models.CaregiverPermissions
	behavior   []models.BehaviorEntry
	flags      map[string]models.AbuseFlag
	flagOrder  []string
	audit      []models.AuditEntry
	contacts   map[string]models.ProtectedContact
	requests   map[string]models.PendingContactRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		caregivers: map[string]models.CaregiverPermissions{},
		flags:      map[string]models.AbuseFlag{},
		contacts:   map[string]models.ProtectedContact{},
		requests:   map[string]models.PendingContactRequest{},
	}
}

// Store exposes the memory tables through the repository interfaces.
func (m *MemoryStore) Store() *Store {
	return &Store{
		Permissions: m,
		Behavior:    m,
		Flags:       m,
		Audit:       m,
		Contacts:    m,
		Requests:    m,
	}
}

// ---- caregiver permissions ----

func (m *MemoryStore) CreateCaregiver(_ context.Context, c *models.CaregiverPermissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[c.CaregiverID]; ok {
		return fmt.Errorf("caregiver already exists: %s", c.CaregiverID)
	}
	m.caregivers[c.CaregiverID] = *c
	return nil
}

func (m *MemoryStore) GetCaregiver(_ context.Context, caregiverID string) (*models.CaregiverPermissions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caregivers[caregiverID]
	if !ok {
		return nil, fmt.Errorf("caregiver %s: %w", caregiverID, models.ErrNotFound)
	}
	return &c, nil
}

func (m *MemoryStore) UpdateCaregiver(_ context.Context, c *models.CaregiverPermissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregivers[c.CaregiverID]; !ok {
		return fmt.Errorf("caregiver %s: %w", c.CaregiverID, models.ErrNotFound)
	}
	m.caregivers[c.CaregiverID] = *c
	return nil
}

func (m *MemoryStore) ListCaregivers(_ context.Context, includeRevoked bool) ([]*models.CaregiverPermissions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.CaregiverPermissions, 0, len(m.caregivers))
	for _, c := range m.caregivers {
		if !includeRevoked && !c.Active {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- behavior log ----

func (m *MemoryStore) AppendBehavior(_ context.Context, e *models.BehaviorEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behavior = append(m.behavior, *e)
	return nil
}

func (m *MemoryStore) CountActions(_ context.Context, caregiverID string, actionTypes []string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]struct{}, len(actionTypes))
	for _, a := range actionTypes {
		wanted[a] = struct{}{}
	}
	count := 0
	for _, e := range m.behavior {
		if e.CaregiverID != caregiverID || e.Timestamp.Before(since) {
			continue
		}
		if _, ok := wanted[e.ActionType]; ok {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountOffHours(_ context.Context, caregiverID string, since time.Time, lateHour, earlyHour int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.behavior {
		if e.CaregiverID != caregiverID || e.Timestamp.Before(since) {
			continue
		}
		if e.HourOfDay >= lateHour || e.HourOfDay <= earlyHour {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) ListBehavior(_ context.Context, caregiverID string, since time.Time) ([]*models.BehaviorEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.BehaviorEntry
	for _, e := range m.behavior {
		if e.CaregiverID != caregiverID || e.Timestamp.Before(since) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	return out, nil
}

// ---- abuse flags ----

func (m *MemoryStore) CreateFlag(_ context.Context, f *models.AbuseFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flags[f.FlagID]; ok {
		return fmt.Errorf("flag already exists: %s", f.FlagID)
	}
	m.flags[f.FlagID] = *f
	m.flagOrder = append(m.flagOrder, f.FlagID)
	return nil
}

func (m *MemoryStore) GetFlag(_ context.Context, flagID string) (*models.AbuseFlag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.flags[flagID]
	if !ok {
		return nil, fmt.Errorf("flag %s: %w", flagID, models.ErrNotFound)
	}
	return &f, nil
}

func (m *MemoryStore) UpdateFlag(_ context.Context, f *models.AbuseFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flags[f.FlagID]; !ok {
		return fmt.Errorf("flag %s: %w", f.FlagID, models.ErrNotFound)
	}
	m.flags[f.FlagID] = *f
	return nil
}

func (m *MemoryStore) ListFlags(_ context.Context, filters models.FlagFilters) ([]*models.AbuseFlag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.AbuseFlag
	for _, id := range m.flagOrder {
		f := m.flags[id]
		if filters.CaregiverID != nil && f.CaregiverID != *filters.CaregiverID {
			continue
		}
		if filters.Severity != nil && f.Severity != *filters.Severity {
			continue
		}
		if filters.FlagType != nil && f.FlagType != *filters.FlagType {
			continue
		}
		if filters.Unresolved && f.Resolved {
			continue
		}
		if filters.Since != nil && f.CreatedAt.Before(*filters.Since) {
			continue
		}
		out = append(out, &f)
	}
	return out, nil
}

func (m *MemoryStore) CountUnresolvedBySeverity(_ context.Context, caregiverID string) (map[models.Severity]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[models.Severity]int{}
	for _, f := range m.flags {
		if f.Resolved {
			continue
		}
		if caregiverID != "" && f.CaregiverID != caregiverID {
			continue
		}
		counts[f.Severity]++
	}
	return counts, nil
}

// ---- audit log ----

func (m *MemoryStore) AppendAudit(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *MemoryStore) LastAudit(_ context.Context) (*models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.audit) == 0 {
		return nil, nil
	}
	e := m.audit[len(m.audit)-1]
	return &e, nil
}

func (m *MemoryStore) ListAudit(_ context.Context, afterSequence int64, limit int) ([]*models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.AuditEntry
	for _, e := range m.audit {
		if e.Sequence <= afterSequence {
			continue
		}
		e := e
		out = append(out, &e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// TamperAudit overwrites a stored audit entry. Test helper for chain verification.
func (m *MemoryStore) TamperAudit(sequence int64, mutate func(e *models.AuditEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.audit {
		if m.audit[i].Sequence == sequence {
			mutate(&m.audit[i])
			return
		}
	}
}

// ---- protected contacts ----

func (m *MemoryStore) CreateContact(_ context.Context, c *models.ProtectedContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[c.ContactID]; ok {
		return fmt.Errorf("contact already exists: %s", c.ContactID)
	}
	m.contacts[c.ContactID] = *c
	return nil
}

func (m *MemoryStore) GetContact(_ context.Context, contactID string) (*models.ProtectedContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[contactID]
	if !ok {
		return nil, fmt.Errorf("contact %s: %w", contactID, models.ErrNotFound)
	}
	return &c, nil
}

func (m *MemoryStore) UpdateContact(_ context.Context, c *models.ProtectedContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[c.ContactID]; !ok {
		return fmt.Errorf("contact %s: %w", c.ContactID, models.ErrNotFound)
	}
	m.contacts[c.ContactID] = *c
	return nil
}

func (m *MemoryStore) ListContacts(_ context.Context, userID string) ([]*models.ProtectedContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ProtectedContact
	for _, c := range m.contacts {
		if c.UserID != userID || c.RemovedAt != nil {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- pending contact requests ----

func (m *MemoryStore) CreateRequest(_ context.Context, r *models.PendingContactRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.RequestID]; ok {
		return fmt.Errorf("request already exists: %s", r.RequestID)
	}
	m.requests[r.RequestID] = *r
	return nil
}

func (m *MemoryStore) GetRequest(_ context.Context, requestID string) (*models.PendingContactRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("contact request %s: %w", requestID, models.ErrNotFound)
	}
	return &r, nil
}

func (m *MemoryStore) UpdateRequest(_ context.Context, r *models.PendingContactRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.RequestID]; !ok {
		return fmt.Errorf("contact request %s: %w", r.RequestID, models.ErrNotFound)
	}
	m.requests[r.RequestID] = *r
	return nil
}

func (m *MemoryStore) ListRequests(_ context.Context, userID string, status models.RequestStatus) ([]*models.PendingContactRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PendingContactRequest
	for _, r := range m.requests {
		if r.UserID != userID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
