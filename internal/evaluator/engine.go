package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/audit"
	"github.com/posdenous/naviya-launcher-sub002/internal/behavior"
	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/notify"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

const (
	shortWindow = 24 * time.Hour
	longWindow  = 7 * 24 * time.Hour
)

// Escalator reacts to a persisted flag according to its severity.
type Escalator interface {
	Escalate(ctx context.Context, flag *models.AbuseFlag) error
}

// finding is a satisfied rule, before it becomes a persisted flag.
type finding struct {
	flagType    models.FlagType
	severity    models.Severity
	description string
	evidence    map[string]any
	window      time.Duration
}

type rule interface {
	name() string
	evaluate(ctx context.Context, caregiverID string) ([]finding, error)
}

// Engine is the abuse rule engine. Every rule category is evaluated
// independently; each satisfied rule yields one flag, which is persisted and
// then escalated.
type Engine struct {
	behavior  *behavior.Log
	flags     repository.FlagsRepo
	chain     *audit.Chain
	escalator Escalator
	feed      notify.FlagFeed
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time

	rules []rule
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithFlagFeed(feed notify.FlagFeed) Option {
	return func(e *Engine) { e.feed = feed }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(
	log *behavior.Log,
	flags repository.FlagsRepo,
	chain *audit.Chain,
	escalator Escalator,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		behavior:  log,
		flags:     flags,
		chain:     chain,
		escalator: escalator,
		feed:      notify.NopFlagFeed{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.rules = []rule{
		newSurveillanceRule(e),
		newSocialIsolationRule(e),
		newCommunicationRule(e),
		newFinancialRule(e),
		newEmergencyAbuseRule(e),
		newPsychologicalControlRule(e),
		newSuspiciousTimingRule(e),
	}
	return e
}

// Analyze evaluates every rule for the caregiver and raises one flag per
// satisfied rule. A rule that fails to evaluate is logged and skipped.
func (e *Engine) Analyze(ctx context.Context, caregiverID string) ([]*models.AbuseFlag, error) {
	if caregiverID == "" {
		return nil, fmt.Errorf("caregiver_id is required: %w", models.ErrInvalidArgument)
	}

	var raised []*models.AbuseFlag
	for _, r := range e.rules {
		findings, err := r.evaluate(ctx, caregiverID)
		if err != nil {
			e.logger.Error("Failed to evaluate rule",
				zap.String("rule", r.name()),
				zap.String("caregiver_id", caregiverID),
				zap.Error(err),
			)
			continue
		}

		for _, f := range findings {
			dup, err := e.alreadyFlagged(ctx, caregiverID, f)
			if err != nil {
				e.logger.Error("Failed to check existing flags",
					zap.String("rule", r.name()),
					zap.String("caregiver_id", caregiverID),
					zap.Error(err),
				)
				continue
			}
			if dup {
				e.logger.Debug("Condition already flagged",
					zap.String("caregiver_id", caregiverID),
					zap.String("flag_type", string(f.flagType)),
				)
				continue
			}

			flag, err := e.raise(ctx, caregiverID, f.flagType, f.severity, f.description, f.evidence)
			if err != nil {
				e.logger.Error("Failed to raise abuse flag",
					zap.String("rule", r.name()),
					zap.String("caregiver_id", caregiverID),
					zap.Error(err),
				)
				continue
			}
			raised = append(raised, flag)
		}
	}
	return raised, nil
}

// RaiseFlag is the manual flagging path used by consent review and the
// contact guard. No duplicate suppression applies.
func (e *Engine) RaiseFlag(ctx context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) (*models.AbuseFlag, error) {
	if caregiverID == "" {
		return nil, fmt.Errorf("caregiver_id is required: %w", models.ErrInvalidArgument)
	}
	if severity.Rank() == 0 {
		return nil, fmt.Errorf("unknown severity %q: %w", severity, models.ErrInvalidArgument)
	}
	return e.raise(ctx, caregiverID, flagType, severity, description, evidence)
}

// alreadyFlagged reports whether an unresolved flag for the same condition
// was raised inside the rule's window.
func (e *Engine) alreadyFlagged(ctx context.Context, caregiverID string, f finding) (bool, error) {
	since := e.now().Add(-f.window)
	flagType := f.flagType
	severity := f.severity
	existing, err := e.flags.ListFlags(ctx, models.FlagFilters{
		CaregiverID: &caregiverID,
		FlagType:    &flagType,
		Severity:    &severity,
		Unresolved:  true,
		Since:       &since,
	})
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

func (e *Engine) raise(ctx context.Context, caregiverID string, flagType models.FlagType, severity models.Severity, description string, evidence map[string]any) (*models.AbuseFlag, error) {
	if evidence == nil {
		evidence = map[string]any{}
	}
	flag := &models.AbuseFlag{
		FlagID:      uuid.New().String(),
		CaregiverID: caregiverID,
		FlagType:    flagType,
		Severity:    severity,
		Description: description,
		Evidence:    evidence,
		CreatedAt:   e.now(),
	}

	if err := e.flags.CreateFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("failed to persist abuse flag: %w", err)
	}
	e.metrics.FlagRaised(string(flagType), string(severity))

	e.logger.Warn("Abuse flag raised",
		zap.String("flag_id", flag.FlagID),
		zap.String("caregiver_id", caregiverID),
		zap.String("flag_type", string(flagType)),
		zap.String("severity", string(severity)),
	)
	e.chain.Record(ctx, models.AuditAbuseFlagRaised, caregiverID, models.ActorSystem, map[string]string{
		"flag_id":   flag.FlagID,
		"flag_type": string(flagType),
		"severity":  string(severity),
	})

	if e.escalator != nil {
		if err := e.escalator.Escalate(ctx, flag); err != nil {
			e.logger.Error("Escalation incomplete",
				zap.String("flag_id", flag.FlagID),
				zap.Error(err),
			)
		}
	}

	if err := e.feed.PublishFlag(ctx, flag); err != nil {
		e.logger.Error("Failed to publish abuse flag",
			zap.String("flag_id", flag.FlagID),
			zap.Error(err),
		)
	}
	return flag, nil
}

// countEvidence is the evidence payload of a count-over-threshold rule.
func countEvidence(actionType string, count, threshold int, window time.Duration) map[string]any {
	return map[string]any{
		"action_type":  actionType,
		"count":        count,
		"threshold":    threshold,
		"window_hours": int(window.Hours()),
	}
}
