package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

const verifyPageSize = 500

// Chain appends tamper-evident entries to the audit log.
//
// Each entry's hash is SHA-256 over the RFC 8785 canonical JSON of every field
// except the hash itself, previous_hash included. Appends are serialized so the
// sequence and previous-hash read cannot fork.
type Chain struct {
	mu      sync.Mutex
	repo    repository.AuditRepo
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Chain)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

func NewChain(repo repository.AuditRepo, logger *zap.Logger, opts ...Option) *Chain {
	c := &Chain{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record appends an entry. Failures are logged and never block the caller's
// primary operation; the returned entry is nil in that case.
func (c *Chain) Record(ctx context.Context, event models.AuditEvent, caregiverID, actor string, details map[string]string) *models.AuditEntry {
	e, err := c.Append(ctx, event, caregiverID, actor, details)
	if err != nil {
		c.metrics.AuditFailed()
		c.logger.Error("Failed to append audit entry",
			zap.String("event", string(event)),
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
		return nil
	}
	return e
}

// Append links a new entry onto the chain and persists it.
func (c *Chain) Append(ctx context.Context, event models.AuditEvent, caregiverID, actor string, details map[string]string) (*models.AuditEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, err := c.repo.LastAudit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain head: %w", err)
	}

	e := &models.AuditEntry{
		EntryID:     uuid.New().String(),
		Sequence:    1,
		Event:       event,
		CaregiverID: caregiverID,
		Actor:       actor,
		Details:     details,
		// microsecond precision survives a postgres round trip
		Timestamp: c.now().UTC().Truncate(time.Microsecond),
	}
	if last != nil {
		e.Sequence = last.Sequence + 1
		e.PreviousHash = last.Hash
	}

	e.Hash, err = ComputeHash(e)
	if err != nil {
		return nil, err
	}
	if err := c.repo.AppendAudit(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// VerifyReport is the outcome of replaying the chain.
type VerifyReport struct {
	Valid    bool   `json:"valid"`
	Entries  int64  `json:"entries"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Verify replays the whole chain and reports the first broken link.
func (c *Chain) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{Valid: true}

	var after int64
	prevHash := ""
	for {
		page, err := c.repo.ListAudit(ctx, after, verifyPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list audit entries: %w", err)
		}
		for _, e := range page {
			report.Entries++
			if reason := checkEntry(e, after, prevHash); reason != "" {
				report.Valid = false
				report.BrokenAt = e.Sequence
				report.Reason = reason
				return report, nil
			}
			after = e.Sequence
			prevHash = e.Hash
		}
		if len(page) < verifyPageSize {
			return report, nil
		}
	}
}

func checkEntry(e *models.AuditEntry, prevSeq int64, prevHash string) string {
	if e.Sequence != prevSeq+1 {
		return fmt.Sprintf("sequence gap: expected %d, got %d", prevSeq+1, e.Sequence)
	}
	if e.PreviousHash != prevHash {
		return "previous hash mismatch"
	}
	computed, err := ComputeHash(e)
	if err != nil {
		return err.Error()
	}
	if computed != e.Hash {
		return fmt.Sprintf("integrity failure: computed %s, stored %s", computed, e.Hash)
	}
	return ""
}

// hashedEntry is every field that feeds the digest.
type hashedEntry struct {
	EntryID      string            `json:"entry_id"`
	Sequence     int64             `json:"sequence"`
	Event        string            `json:"event"`
	CaregiverID  string            `json:"caregiver_id"`
	Actor        string            `json:"actor"`
	Details      map[string]string `json:"details"`
	Timestamp    string            `json:"timestamp"`
	PreviousHash string            `json:"previous_hash"`
}

// ComputeHash returns the hex SHA-256 of the entry's canonical form.
func ComputeHash(e *models.AuditEntry) (string, error) {
	details := e.Details
	if details == nil {
		details = map[string]string{}
	}
	raw, err := json.Marshal(hashedEntry{
		EntryID:      e.EntryID,
		Sequence:     e.Sequence,
		Event:        string(e.Event),
		CaregiverID:  e.CaregiverID,
		Actor:        e.Actor,
		Details:      details,
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
		PreviousHash: e.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize audit entry: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
