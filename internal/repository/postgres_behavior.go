package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"

	"go.uber.org/zap"
)

// PostgresBehaviorRepo caregiver_behavior_log repository (append-only).
type PostgresBehaviorRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresBehaviorRepo(db *sql.DB, logger *zap.Logger) *PostgresBehaviorRepo {
	return &PostgresBehaviorRepo{db: db, logger: logger}
}

func (r *PostgresBehaviorRepo) AppendBehavior(ctx context.Context, e *models.BehaviorEntry) error {
	if e == nil || e.CaregiverID == "" {
		return fmt.Errorf("caregiver_id is required")
	}

	query := `
		INSERT INTO caregiver_behavior_log (
			entry_id,
			caregiver_id,
			action_type,
			timestamp,
			frequency,
			context,
			user_response,
			hour_of_day,
			day_of_week
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		e.EntryID,
		e.CaregiverID,
		e.ActionType,
		e.Timestamp,
		e.Frequency,
		e.Context,
		e.UserResponse,
		e.HourOfDay,
		e.DayOfWeek,
	)
	if err != nil {
		return fmt.Errorf("failed to append behavior entry: %w", err)
	}
	return nil
}

func (r *PostgresBehaviorRepo) CountActions(ctx context.Context, caregiverID string, actionTypes []string, since time.Time) (int, error) {
	if len(actionTypes) == 0 {
		return 0, nil
	}

	args := []any{caregiverID, since}
	placeholders := make([]string, 0, len(actionTypes))
	for _, a := range actionTypes {
		args = append(args, a)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := `
		SELECT COUNT(*)
		FROM caregiver_behavior_log
		WHERE caregiver_id = $1
		  AND timestamp >= $2
		  AND action_type IN (` + strings.Join(placeholders, ", ") + `)`

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count behavior entries: %w", err)
	}
	return count, nil
}

func (r *PostgresBehaviorRepo) CountOffHours(ctx context.Context, caregiverID string, since time.Time, lateHour, earlyHour int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM caregiver_behavior_log
		WHERE caregiver_id = $1
		  AND timestamp >= $2
		  AND (hour_of_day >= $3 OR hour_of_day <= $4)`

	var count int
	if err := r.db.QueryRowContext(ctx, query, caregiverID, since, lateHour, earlyHour).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count off-hours behavior: %w", err)
	}
	return count, nil
}

func (r *PostgresBehaviorRepo) ListBehavior(ctx context.Context, caregiverID string, since time.Time) ([]*models.BehaviorEntry, error) {
	query := `
		SELECT
			entry_id,
			caregiver_id,
			action_type,
			timestamp,
			frequency,
			context,
			user_response,
			hour_of_day,
			day_of_week
		FROM caregiver_behavior_log
		WHERE caregiver_id = $1
		  AND timestamp >= $2
		ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, caregiverID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list behavior entries: %w", err)
	}
	defer rows.Close()

	var out []*models.BehaviorEntry
	for rows.Next() {
		var e models.BehaviorEntry
		var bctx, response sql.NullString
		if err := rows.Scan(
			&e.EntryID,
			&e.CaregiverID,
			&e.ActionType,
			&e.Timestamp,
			&e.Frequency,
			&bctx,
			&response,
			&e.HourOfDay,
			&e.DayOfWeek,
		); err != nil {
			return nil, fmt.Errorf("failed to scan behavior entry: %w", err)
		}
		e.Context = bctx.String
		e.UserResponse = response.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate behavior entries: %w", err)
	}
	return out, nil
}
