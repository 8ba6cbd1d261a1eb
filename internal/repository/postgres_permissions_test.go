package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

func setupMockPermissionsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresPermissionsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresPermissionsRepo(db, zap.NewNop())
}

var permissionRowColumns = []string{
	"caregiver_id", "name", "contact", "emergency_notifications", "location_access",
	"app_usage_monitoring", "monitoring_frequency", "remote_configuration",
	"communication_access", "health_data_access", "consent_timestamp", "witness_id",
	"last_consent_review", "active", "revoked_at", "revocation_reason", "suspended",
	"restricted_until", "created_at", "updated_at",
}

func TestCreateCaregiver_Success(t *testing.T) {
	db, mock, repo := setupMockPermissionsDB(t)
	defer db.Close()

	now := time.Now()
	id := uuid.New().String()
	c := models.NewCaregiverPermissions(id, "Anna", "+4912345", nil, now)

	mock.ExpectExec(`INSERT INTO caregiver_permissions`).
		WithArgs(
			id, "Anna", "+4912345", true, "NONE",
			false, "NORMAL", false,
			false, false, now, nil,
			now, true, nil, nil, false,
			nil, now, now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreateCaregiver(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCaregiver_MissingID(t *testing.T) {
	db, mock, repo := setupMockPermissionsDB(t)
	defer db.Close()

	err := repo.CreateCaregiver(context.Background(), &models.CaregiverPermissions{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "caregiver_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCaregiver_Success(t *testing.T) {
	db, mock, repo := setupMockPermissionsDB(t)
	defer db.Close()

	now := time.Now()
	id := uuid.New().String()
	restricted := now.Add(24 * time.Hour)

	rows := sqlmock.NewRows(permissionRowColumns).AddRow(
		id, "Anna", "+4912345", true, "EMERGENCY_ONLY",
		false, "REDUCED", false,
		true, false, now, "witness-1",
		now, true, nil, nil, false,
		restricted, now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnRows(rows)

	c, err := repo.GetCaregiver(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, c.CaregiverID)
	assert.Equal(t, models.LocationEmergencyOnly, c.LocationAccess)
	assert.Equal(t, models.MonitoringReduced, c.MonitoringFrequency)
	assert.True(t, c.CommunicationAccess)
	require.NotNil(t, c.WitnessID)
	assert.Equal(t, "witness-1", *c.WitnessID)
	require.NotNil(t, c.RestrictedUntil)
	assert.Nil(t, c.RevokedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCaregiver_NotFound(t *testing.T) {
	db, mock, repo := setupMockPermissionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	c, err := repo.GetCaregiver(context.Background(), "missing")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCaregiver_NoRows(t *testing.T) {
	db, mock, repo := setupMockPermissionsDB(t)
	defer db.Close()

	c := models.NewCaregiverPermissions("cg-x", "Anna", "", nil, time.Now())
	mock.ExpectExec(`UPDATE caregiver_permissions`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateCaregiver(context.Background(), c)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCaregivers_ActiveOnly(t *testing.T) {
	db, mock, repo := setupMockPermissionsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(permissionRowColumns).AddRow(
		"cg-1", "Anna", "", true, "NONE",
		false, "NORMAL", false,
		false, false, now, nil,
		now, true, nil, nil, false,
		nil, now, now,
	)
	mock.ExpectQuery(`WHERE active = TRUE`).WillReturnRows(rows)

	list, err := repo.ListCaregivers(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cg-1", list[0].CaregiverID)
	require.NoError(t, mock.ExpectationsWereMet())
}
