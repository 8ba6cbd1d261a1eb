package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Tables lists the guardian tables in creation order.
var Tables = []string{
	"caregiver_permissions",
	"caregiver_behavior_log",
	"abuse_flags",
	"audit_log",
	"protected_contacts",
	"pending_contact_requests",
}

// schema uses {{ts}} for the timestamp column type, which differs per dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS caregiver_permissions (
		caregiver_id            TEXT PRIMARY KEY,
		name                    TEXT NOT NULL,
		contact                 TEXT NOT NULL DEFAULT '',
		emergency_notifications BOOLEAN NOT NULL DEFAULT TRUE,
		location_access         TEXT NOT NULL DEFAULT 'NONE',
		app_usage_monitoring    BOOLEAN NOT NULL DEFAULT FALSE,
		monitoring_frequency    TEXT NOT NULL DEFAULT 'NORMAL',
		remote_configuration    BOOLEAN NOT NULL DEFAULT FALSE,
		communication_access    BOOLEAN NOT NULL DEFAULT FALSE,
		health_data_access      BOOLEAN NOT NULL DEFAULT FALSE,
		consent_timestamp       {{ts}} NOT NULL,
		witness_id              TEXT,
		last_consent_review     {{ts}} NOT NULL,
		active                  BOOLEAN NOT NULL DEFAULT TRUE,
		revoked_at              {{ts}},
		revocation_reason       TEXT,
		suspended               BOOLEAN NOT NULL DEFAULT FALSE,
		restricted_until        {{ts}},
		created_at              {{ts}} NOT NULL,
		updated_at              {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS caregiver_behavior_log (
		entry_id      TEXT PRIMARY KEY,
		caregiver_id  TEXT NOT NULL,
		action_type   TEXT NOT NULL,
		timestamp     {{ts}} NOT NULL,
		frequency     INTEGER NOT NULL DEFAULT 1,
		context       TEXT,
		user_response TEXT,
		hour_of_day   INTEGER NOT NULL,
		day_of_week   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_behavior_caregiver_time
		ON caregiver_behavior_log (caregiver_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS abuse_flags (
		flag_id                 TEXT PRIMARY KEY,
		caregiver_id            TEXT NOT NULL,
		flag_type               TEXT NOT NULL,
		severity                TEXT NOT NULL,
		description             TEXT NOT NULL,
		evidence                TEXT NOT NULL DEFAULT '{}',
		resolved                BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at             {{ts}},
		resolved_by             TEXT,
		resolution_notes        TEXT,
		reported_to_authorities BOOLEAN NOT NULL DEFAULT FALSE,
		user_notified           BOOLEAN NOT NULL DEFAULT FALSE,
		automatic_action_taken  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at              {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flags_caregiver_resolved
		ON abuse_flags (caregiver_id, resolved)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		entry_id      TEXT NOT NULL,
		sequence      BIGINT PRIMARY KEY,
		event         TEXT NOT NULL,
		caregiver_id  TEXT,
		actor         TEXT NOT NULL,
		details       TEXT NOT NULL DEFAULT '{}',
		timestamp     {{ts}} NOT NULL,
		previous_hash TEXT NOT NULL,
		hash          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS protected_contacts (
		contact_id           TEXT PRIMARY KEY,
		user_id              TEXT NOT NULL,
		name                 TEXT NOT NULL,
		phone                TEXT NOT NULL,
		relationship         TEXT,
		protection_level     TEXT NOT NULL,
		is_emergency_contact BOOLEAN NOT NULL DEFAULT FALSE,
		added_by             TEXT NOT NULL,
		created_at           {{ts}} NOT NULL,
		removed_at           {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS pending_contact_requests (
		request_id    TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		caregiver_id  TEXT NOT NULL,
		contact_name  TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		relationship  TEXT,
		reason        TEXT,
		status        TEXT NOT NULL,
		created_at    {{ts}} NOT NULL,
		responded_at  {{ts}},
		contact_id    TEXT
	)`,
}

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	ts := "TIMESTAMPTZ"
	if driver == "sqlite" {
		// modernc.org/sqlite maps DATETIME columns back to time.Time
		ts = "DATETIME"
	}

	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{ts}}", ts)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}
