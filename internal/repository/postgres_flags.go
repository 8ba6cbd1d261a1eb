package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"

	"go.uber.org/zap"
)

// PostgresFlagsRepo abuse_flags repository.
type PostgresFlagsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresFlagsRepo(db *sql.DB, logger *zap.Logger) *PostgresFlagsRepo {
	return &PostgresFlagsRepo{db: db, logger: logger}
}

const flagColumns = `
	flag_id,
	caregiver_id,
	flag_type,
	severity,
	description,
	evidence,
	resolved,
	resolved_at,
	resolved_by,
	resolution_notes,
	reported_to_authorities,
	user_notified,
	automatic_action_taken,
	created_at`

func (r *PostgresFlagsRepo) CreateFlag(ctx context.Context, f *models.AbuseFlag) error {
	if f == nil || f.FlagID == "" {
		return fmt.Errorf("flag_id is required")
	}

	args, err := flagArgs(f)
	if err != nil {
		return err
	}

	query := `INSERT INTO abuse_flags (` + flagColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create abuse flag: %w", err)
	}
	return nil
}

func (r *PostgresFlagsRepo) GetFlag(ctx context.Context, flagID string) (*models.AbuseFlag, error) {
	if flagID == "" {
		return nil, fmt.Errorf("flag_id is required")
	}

	query := `SELECT ` + flagColumns + ` FROM abuse_flags WHERE flag_id = $1`

	f, err := scanFlag(r.db.QueryRowContext(ctx, query, flagID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("flag %s: %w", flagID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get abuse flag: %w", err)
	}
	return f, nil
}

// UpdateFlag writes the mutable resolution and escalation columns only.
func (r *PostgresFlagsRepo) UpdateFlag(ctx context.Context, f *models.AbuseFlag) error {
	if f == nil || f.FlagID == "" {
		return fmt.Errorf("flag_id is required")
	}

	query := `
		UPDATE abuse_flags SET
			resolved = $2,
			resolved_at = $3,
			resolved_by = $4,
			resolution_notes = $5,
			reported_to_authorities = $6,
			user_notified = $7,
			automatic_action_taken = $8
		WHERE flag_id = $1`

	res, err := r.db.ExecContext(ctx, query,
		f.FlagID,
		f.Resolved,
		nullTime(f.ResolvedAt),
		nullString(f.ResolvedBy),
		nullString(f.ResolutionNotes),
		f.ReportedToAuthorities,
		f.UserNotified,
		f.AutomaticActionTaken,
	)
	if err != nil {
		return fmt.Errorf("failed to update abuse flag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("flag %s: %w", f.FlagID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresFlagsRepo) ListFlags(ctx context.Context, filters models.FlagFilters) ([]*models.AbuseFlag, error) {
	var where []string
	var args []any

	if filters.CaregiverID != nil {
		args = append(args, *filters.CaregiverID)
		where = append(where, fmt.Sprintf("caregiver_id = $%d", len(args)))
	}
	if filters.Severity != nil {
		args = append(args, string(*filters.Severity))
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filters.FlagType != nil {
		args = append(args, string(*filters.FlagType))
		where = append(where, fmt.Sprintf("flag_type = $%d", len(args)))
	}
	if filters.Unresolved {
		where = append(where, "resolved = FALSE")
	}
	if filters.Since != nil {
		args = append(args, *filters.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + flagColumns + ` FROM abuse_flags`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list abuse flags: %w", err)
	}
	defer rows.Close()

	var out []*models.AbuseFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan abuse flag: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate abuse flags: %w", err)
	}
	return out, nil
}

func (r *PostgresFlagsRepo) CountUnresolvedBySeverity(ctx context.Context, caregiverID string) (map[models.Severity]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM abuse_flags
		WHERE resolved = FALSE`
	var args []any
	if caregiverID != "" {
		query += ` AND caregiver_id = $1`
		args = append(args, caregiverID)
	}
	query += ` GROUP BY severity`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count unresolved flags: %w", err)
	}
	defer rows.Close()

	counts := map[models.Severity]int{}
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan flag count: %w", err)
		}
		counts[models.Severity(severity)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flag counts: %w", err)
	}
	return counts, nil
}

func flagArgs(f *models.AbuseFlag) ([]any, error) {
	evidence, err := marshalJSONColumn(f.Evidence)
	if err != nil {
		return nil, err
	}
	return []any{
		f.FlagID,
		f.CaregiverID,
		string(f.FlagType),
		string(f.Severity),
		f.Description,
		evidence,
		f.Resolved,
		nullTime(f.ResolvedAt),
		nullString(f.ResolvedBy),
		nullString(f.ResolutionNotes),
		f.ReportedToAuthorities,
		f.UserNotified,
		f.AutomaticActionTaken,
		f.CreatedAt,
	}, nil
}

func scanFlag(row rowScanner) (*models.AbuseFlag, error) {
	var f models.AbuseFlag
	var flagType, severity string
	var evidence []byte
	var resolvedAt sql.NullTime
	var resolvedBy, notes sql.NullString

	err := row.Scan(
		&f.FlagID,
		&f.CaregiverID,
		&flagType,
		&severity,
		&f.Description,
		&evidence,
		&f.Resolved,
		&resolvedAt,
		&resolvedBy,
		&notes,
		&f.ReportedToAuthorities,
		&f.UserNotified,
		&f.AutomaticActionTaken,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.FlagType = models.FlagType(flagType)
	f.Severity = models.Severity(severity)
	f.ResolvedAt = timePtr(resolvedAt)
	f.ResolvedBy = stringPtr(resolvedBy)
	f.ResolutionNotes = stringPtr(notes)
	f.Evidence = map[string]any{}
	if err := unmarshalJSONColumn(evidence, &f.Evidence); err != nil {
		return nil, err
	}
	return &f, nil
}
