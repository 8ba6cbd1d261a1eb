package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"

	"go.uber.org/zap"
)

// PostgresAuditRepo audit_log repository (append-only).
type PostgresAuditRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresAuditRepo(db *sql.DB, logger *zap.Logger) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db, logger: logger}
}

const auditColumns = `
	entry_id,
	sequence,
	event,
	caregiver_id,
	actor,
	details,
	timestamp,
	previous_hash,
	hash`

func (r *PostgresAuditRepo) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if e == nil || e.EntryID == "" {
		return fmt.Errorf("entry_id is required")
	}
	details, err := marshalJSONColumn(e.Details)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_log (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		e.EntryID,
		e.Sequence,
		string(e.Event),
		e.CaregiverID,
		e.Actor,
		details,
		e.Timestamp,
		e.PreviousHash,
		e.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepo) LastAudit(ctx context.Context) (*models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + `
		FROM audit_log
		ORDER BY sequence DESC
		LIMIT 1`

	e, err := scanAudit(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last audit entry: %w", err)
	}
	return e, nil
}

func (r *PostgresAuditRepo) ListAudit(ctx context.Context, afterSequence int64, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT ` + auditColumns + `
		FROM audit_log
		WHERE sequence > $1
		ORDER BY sequence
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, afterSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return out, nil
}

func scanAudit(row rowScanner) (*models.AuditEntry, error) {
	var e models.AuditEntry
	var event string
	var caregiverID sql.NullString
	var details []byte

	err := row.Scan(
		&e.EntryID,
		&e.Sequence,
		&event,
		&caregiverID,
		&e.Actor,
		&details,
		&e.Timestamp,
		&e.PreviousHash,
		&e.Hash,
	)
	if err != nil {
		return nil, err
	}
	e.Event = models.AuditEvent(event)
	e.CaregiverID = caregiverID.String
	if err := unmarshalJSONColumn(details, &e.Details); err != nil {
		return nil, err
	}
	if len(e.Details) == 0 {
		e.Details = nil
	}
	return &e, nil
}
