package modlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tis-trainee/credential-broker/internal/domain"
)

func newTestLog(t *testing.T) (*Log, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestLog_Upsert(t *testing.T) {
	log, mock := newTestLog(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO modification_log").
		WithArgs("entity-1", "TRAINING_PROGRAMME", now, "fp-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := log.Upsert(context.Background(), "entity-1", domain.TrainingProgramme, now, "fp-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_Get_Found(t *testing.T) {
	log, mock := newTestLog(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"last_modified_at", "fingerprint"}).AddRow(now, "fp-1")
	mock.ExpectQuery("SELECT last_modified_at").
		WithArgs("entity-1", "TRAINING_PROGRAMME").
		WillReturnRows(rows)

	got, ok := log.Get(context.Background(), "entity-1", domain.TrainingProgramme)
	require.True(t, ok)
	require.True(t, got.Equal(now))
}

func TestLog_Get_NotFound(t *testing.T) {
	log, mock := newTestLog(t)
	mock.ExpectQuery("SELECT last_modified_at").
		WithArgs("entity-1", "TRAINING_PROGRAMME").
		WillReturnError(sql.ErrNoRows)

	_, ok := log.Get(context.Background(), "entity-1", domain.TrainingProgramme)
	require.False(t, ok)
}

func TestLog_GetRecord_Found(t *testing.T) {
	log, mock := newTestLog(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"last_modified_at", "fingerprint"}).AddRow(now, "fp-1")
	mock.ExpectQuery("SELECT last_modified_at").
		WithArgs("entity-1", "TRAINING_PLACEMENT").
		WillReturnRows(rows)

	rec, ok := log.GetRecord(context.Background(), "entity-1", domain.TrainingPlacement)
	require.True(t, ok)
	require.Equal(t, "entity-1", rec.EntityID)
	require.Equal(t, "fp-1", rec.Fingerprint)
}
