package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

// Log is the append-only caregiver behavior record.
type Log struct {
	repo     repository.BehaviorRepo
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

type Option func(*Log)

func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLocation sets the elder's timezone used for hour-of-day and day-of-week.
func WithLocation(loc *time.Location) Option {
	return func(l *Log) {
		if loc != nil {
			l.location = loc
		}
	}
}

func NewLog(repo repository.BehaviorRepo, logger *zap.Logger, opts ...Option) *Log {
	l := &Log{repo: repo, logger: logger, location: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the log's current time.
func (l *Log) Now() time.Time {
	return l.now()
}

// Record appends one caregiver action. Frequency is the number of entries of
// the same action in the trailing 24 hours, this one included.
func (l *Log) Record(ctx context.Context, caregiverID, actionType, actionContext, userResponse string) (*models.BehaviorEntry, error) {
	if caregiverID == "" {
		return nil, fmt.Errorf("caregiver_id is required: %w", models.ErrInvalidArgument)
	}
	if actionType == "" {
		return nil, fmt.Errorf("action_type is required: %w", models.ErrInvalidArgument)
	}

	now := l.now()
	prior, err := l.repo.CountActions(ctx, caregiverID, []string{actionType}, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count prior actions: %w", err)
	}

	local := now.In(l.location)
	e := &models.BehaviorEntry{
		EntryID:      uuid.New().String(),
		CaregiverID:  caregiverID,
		ActionType:   actionType,
		Timestamp:    now,
		Frequency:    prior + 1,
		Context:      actionContext,
		UserResponse: userResponse,
		HourOfDay:    local.Hour(),
		DayOfWeek:    int(local.Weekday()),
	}
	if err := l.repo.AppendBehavior(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to append behavior entry: %w", err)
	}

	l.logger.Debug("Behavior recorded",
		zap.String("caregiver_id", caregiverID),
		zap.String("action_type", actionType),
		zap.Int("frequency", e.Frequency),
	)
	return e, nil
}

// Count returns how many of actionTypes the caregiver performed in the trailing window.
func (l *Log) Count(ctx context.Context, caregiverID string, window time.Duration, actionTypes ...string) (int, error) {
	return l.repo.CountActions(ctx, caregiverID, actionTypes, l.now().Add(-window))
}

// CountOffHours counts entries in the trailing window at or after lateHour or at or before earlyHour.
func (l *Log) CountOffHours(ctx context.Context, caregiverID string, window time.Duration, lateHour, earlyHour int) (int, error) {
	return l.repo.CountOffHours(ctx, caregiverID, l.now().Add(-window), lateHour, earlyHour)
}

// Entries lists every entry in the trailing window.
func (l *Log) Entries(ctx context.Context, caregiverID string, window time.Duration) ([]*models.BehaviorEntry, error) {
	return l.repo.ListBehavior(ctx, caregiverID, l.now().Add(-window))
}
