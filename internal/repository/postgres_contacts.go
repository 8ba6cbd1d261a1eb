package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"

	"go.uber.org/zap"
)

// PostgresContactsRepo protected_contacts and pending_contact_requests repository.
type PostgresContactsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresContactsRepo(db *sql.DB, logger *zap.Logger) *PostgresContactsRepo {
	return &PostgresContactsRepo{db: db, logger: logger}
}

// ============================================
// protected_contacts
// ============================================

const contactColumns = `
	contact_id,
	user_id,
	name,
	phone,
	relationship,
	protection_level,
	is_emergency_contact,
	added_by,
	created_at,
	removed_at`

func (r *PostgresContactsRepo) CreateContact(ctx context.Context, c *models.ProtectedContact) error {
	if c == nil || c.ContactID == "" {
		return fmt.Errorf("contact_id is required")
	}

	query := `INSERT INTO protected_contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		c.ContactID,
		c.UserID,
		c.Name,
		c.Phone,
		c.Relationship,
		string(c.ProtectionLevel),
		c.IsEmergencyContact,
		c.AddedBy,
		c.CreatedAt,
		nullTime(c.RemovedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *PostgresContactsRepo) GetContact(ctx context.Context, contactID string) (*models.ProtectedContact, error) {
	if contactID == "" {
		return nil, fmt.Errorf("contact_id is required")
	}
	query := `SELECT ` + contactColumns + ` FROM protected_contacts WHERE contact_id = $1`

	c, err := scanContact(r.db.QueryRowContext(ctx, query, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact %s: %w", contactID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

func (r *PostgresContactsRepo) UpdateContact(ctx context.Context, c *models.ProtectedContact) error {
	if c == nil || c.ContactID == "" {
		return fmt.Errorf("contact_id is required")
	}

	query := `
		UPDATE protected_contacts SET
			name = $2,
			phone = $3,
			relationship = $4,
			protection_level = $5,
			is_emergency_contact = $6,
			removed_at = $7
		WHERE contact_id = $1`

	res, err := r.db.ExecContext(ctx, query,
		c.ContactID,
		c.Name,
		c.Phone,
		c.Relationship,
		string(c.ProtectionLevel),
		c.IsEmergencyContact,
		nullTime(c.RemovedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contact %s: %w", c.ContactID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresContactsRepo) ListContacts(ctx context.Context, userID string) ([]*models.ProtectedContact, error) {
	query := `SELECT ` + contactColumns + `
		FROM protected_contacts
		WHERE user_id = $1
		  AND removed_at IS NULL
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var out []*models.ProtectedContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return out, nil
}

func scanContact(row rowScanner) (*models.ProtectedContact, error) {
	var c models.ProtectedContact
	var level string
	var relationship sql.NullString
	var removedAt sql.NullTime

	err := row.Scan(
		&c.ContactID,
		&c.UserID,
		&c.Name,
		&c.Phone,
		&relationship,
		&level,
		&c.IsEmergencyContact,
		&c.AddedBy,
		&c.CreatedAt,
		&removedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Relationship = relationship.String
	c.ProtectionLevel = models.ProtectionLevel(level)
	c.RemovedAt = timePtr(removedAt)
	return &c, nil
}

// ============================================
// pending_contact_requests
// ============================================

const requestColumns = `
	request_id,
	user_id,
	caregiver_id,
	contact_name,
	contact_phone,
	relationship,
	reason,
	status,
	created_at,
	responded_at,
	contact_id`

func (r *PostgresContactsRepo) CreateRequest(ctx context.Context, req *models.PendingContactRequest) error {
	if req == nil || req.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}

	query := `INSERT INTO pending_contact_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		req.RequestID,
		req.UserID,
		req.CaregiverID,
		req.ContactName,
		req.ContactPhone,
		req.Relationship,
		req.Reason,
		string(req.Status),
		req.CreatedAt,
		nullTime(req.RespondedAt),
		nullString(req.ContactID),
	)
	if err != nil {
		return fmt.Errorf("failed to create contact request: %w", err)
	}
	return nil
}

func (r *PostgresContactsRepo) GetRequest(ctx context.Context, requestID string) (*models.PendingContactRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required")
	}
	query := `SELECT ` + requestColumns + ` FROM pending_contact_requests WHERE request_id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact request %s: %w", requestID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact request: %w", err)
	}
	return req, nil
}

func (r *PostgresContactsRepo) UpdateRequest(ctx context.Context, req *models.PendingContactRequest) error {
	if req == nil || req.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}

	query := `
		UPDATE pending_contact_requests SET
			status = $2,
			responded_at = $3,
			contact_id = $4
		WHERE request_id = $1`

	res, err := r.db.ExecContext(ctx, query,
		req.RequestID,
		string(req.Status),
		nullTime(req.RespondedAt),
		nullString(req.ContactID),
	)
	if err != nil {
		return fmt.Errorf("failed to update contact request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contact request %s: %w", req.RequestID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresContactsRepo) ListRequests(ctx context.Context, userID string, status models.RequestStatus) ([]*models.PendingContactRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM pending_contact_requests
		WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact requests: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingContactRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contact requests: %w", err)
	}
	return out, nil
}

func scanRequest(row rowScanner) (*models.PendingContactRequest, error) {
	var req models.PendingContactRequest
	var status string
	var relationship, reason, contactID sql.NullString
	var respondedAt sql.NullTime

	err := row.Scan(
		&req.RequestID,
		&req.UserID,
		&req.CaregiverID,
		&req.ContactName,
		&req.ContactPhone,
		&relationship,
		&reason,
		&status,
		&req.CreatedAt,
		&respondedAt,
		&contactID,
	)
	if err != nil {
		return nil, err
	}
	req.Relationship = relationship.String
	req.Reason = reason.String
	req.Status = models.RequestStatus(status)
	req.RespondedAt = timePtr(respondedAt)
	req.ContactID = stringPtr(contactID)
	return &req, nil
}

// NewPostgresStore wires every SQL repository onto db.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *Store {
	contacts := NewPostgresContactsRepo(db, logger)
	return &Store{
		Permissions: NewPostgresPermissionsRepo(db, logger),
		Behavior:    NewPostgresBehaviorRepo(db, logger),
		Flags:       NewPostgresFlagsRepo(db, logger),
		Audit:       NewPostgresAuditRepo(db, logger),
		Contacts:    contacts,
		Requests:    contacts,
	}
}
