package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"

	"go.uber.org/zap"
)

// PostgresPermissionsRepo caregiver_permissions repository.
// The SQL also runs unchanged on the on-device SQLite store.
type PostgresPermissionsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresPermissionsRepo(db *sql.DB, logger *zap.Logger) *PostgresPermissionsRepo {
	return &PostgresPermissionsRepo{db: db, logger: logger}
}

const permissionColumns = `
	caregiver_id,
	name,
	contact,
	emergency_notifications,
	location_access,
	app_usage_monitoring,
	monitoring_frequency,
	remote_configuration,
	communication_access,
	health_data_access,
	consent_timestamp,
	witness_id,
	last_consent_review,
	active,
	revoked_at,
	revocation_reason,
	suspended,
	restricted_until,
	created_at,
	updated_at`

func (r *PostgresPermissionsRepo) CreateCaregiver(ctx context.Context, c *models.CaregiverPermissions) error {
	if c == nil || c.CaregiverID == "" {
		return fmt.Errorf("caregiver_id is required")
	}

	query := `INSERT INTO caregiver_permissions (` + permissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.db.ExecContext(ctx, query, permissionArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to create caregiver permissions: %w", err)
	}
	return nil
}

func (r *PostgresPermissionsRepo) GetCaregiver(ctx context.Context, caregiverID string) (*models.CaregiverPermissions, error) {
	if caregiverID == "" {
		return nil, fmt.Errorf("caregiver_id is required")
	}

	query := `SELECT ` + permissionColumns + `
		FROM caregiver_permissions
		WHERE caregiver_id = $1`

	c, err := scanPermissions(r.db.QueryRowContext(ctx, query, caregiverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("caregiver %s: %w", caregiverID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get caregiver permissions: %w", err)
	}
	return c, nil
}

func (r *PostgresPermissionsRepo) UpdateCaregiver(ctx context.Context, c *models.CaregiverPermissions) error {
	if c == nil || c.CaregiverID == "" {
		return fmt.Errorf("caregiver_id is required")
	}

	query := `
		UPDATE caregiver_permissions SET
			name = $2,
			contact = $3,
			emergency_notifications = $4,
			location_access = $5,
			app_usage_monitoring = $6,
			monitoring_frequency = $7,
			remote_configuration = $8,
			communication_access = $9,
			health_data_access = $10,
			consent_timestamp = $11,
			witness_id = $12,
			last_consent_review = $13,
			active = $14,
			revoked_at = $15,
			revocation_reason = $16,
			suspended = $17,
			restricted_until = $18,
			created_at = $19,
			updated_at = $20
		WHERE caregiver_id = $1`

	res, err := r.db.ExecContext(ctx, query, permissionArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to update caregiver permissions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("caregiver %s: %w", c.CaregiverID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresPermissionsRepo) ListCaregivers(ctx context.Context, includeRevoked bool) ([]*models.CaregiverPermissions, error) {
	query := `SELECT ` + permissionColumns + `
		FROM caregiver_permissions`
	if !includeRevoked {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	defer rows.Close()

	var out []*models.CaregiverPermissions
	for rows.Next() {
		c, err := scanPermissions(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate caregivers: %w", err)
	}
	return out, nil
}

func permissionArgs(c *models.CaregiverPermissions) []any {
	return []any{
		c.CaregiverID,
		c.Name,
		c.Contact,
		c.EmergencyNotifications,
		string(c.LocationAccess),
		c.AppUsageMonitoring,
		string(c.MonitoringFrequency),
		c.RemoteConfiguration,
		c.CommunicationAccess,
		c.HealthDataAccess,
		c.ConsentTimestamp,
		nullString(c.WitnessID),
		c.LastConsentReview,
		c.Active,
		nullTime(c.RevokedAt),
		nullString(c.RevocationReason),
		c.Suspended,
		nullTime(c.RestrictedUntil),
		c.CreatedAt,
		c.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermissions(row rowScanner) (*models.CaregiverPermissions, error) {
	var c models.CaregiverPermissions
	var location, frequency string
	var witnessID, revocationReason sql.NullString
	var revokedAt, restrictedUntil sql.NullTime

	err := row.Scan(
		&c.CaregiverID,
		&c.Name,
		&c.Contact,
		&c.EmergencyNotifications,
		&location,
		&c.AppUsageMonitoring,
		&frequency,
		&c.RemoteConfiguration,
		&c.CommunicationAccess,
		&c.HealthDataAccess,
		&c.ConsentTimestamp,
		&witnessID,
		&c.LastConsentReview,
		&c.Active,
		&revokedAt,
		&revocationReason,
		&c.Suspended,
		&restrictedUntil,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.LocationAccess = models.LocationTier(location)
	c.MonitoringFrequency = models.MonitoringFrequency(frequency)
	c.WitnessID = stringPtr(witnessID)
	c.RevocationReason = stringPtr(revocationReason)
	c.RevokedAt = timePtr(revokedAt)
	c.RestrictedUntil = timePtr(restrictedUntil)
	return &c, nil
}
