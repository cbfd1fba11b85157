package credstore

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

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestStore_Save(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO credential_metadata").WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Save(context.Background(), domain.CredentialMetadata{
		CredentialID:   "cred-1",
		SubjectID:      "trainee-1",
		EntityID:       "prog-1",
		CredentialType: domain.TrainingProgramme.DisplayName(),
		IssuedAt:       time.Now(),
		ExpiresAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ByEntity(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "credential_id", "subject_id", "entity_id", "credential_type", "issued_at", "expires_at", "revoked_at", "created_at", "updated_at"}).
		AddRow("11111111-1111-1111-1111-111111111111", "cred-1", "trainee-1", "prog-1", "TRAINING_PROGRAMME", now, now.Add(time.Hour), nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM credential_metadata").
		WithArgs("TRAINING_PROGRAMME", "prog-1").
		WillReturnRows(rows)

	got, err := store.ByEntity(context.Background(), domain.TrainingProgramme, "prog-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "cred-1", got[0].CredentialID)
	require.False(t, got[0].Revoked())
}

func TestStore_LatestBySubject_DedupesByEntityAndSkipsMissingIssuedAt(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "credential_id", "subject_id", "entity_id", "credential_type", "issued_at", "expires_at", "revoked_at", "created_at", "updated_at"}).
		AddRow("11111111-1111-1111-1111-111111111111", "cred-1", "trainee-1", "prog-1", "TRAINING_PROGRAMME", now, now.Add(time.Hour), nil, now, now).
		AddRow("22222222-2222-2222-2222-222222222222", "cred-2", "trainee-1", "prog-1", "TRAINING_PROGRAMME", now, now.Add(time.Hour), nil, now, now).
		AddRow("33333333-3333-3333-3333-333333333333", "cred-3", "trainee-1", "prog-2", "TRAINING_PROGRAMME", nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM credential_metadata").
		WithArgs("TRAINING_PROGRAMME", "trainee-1").
		WillReturnRows(rows)

	got, err := store.LatestBySubject(context.Background(), domain.TrainingProgramme, "trainee-1")
	require.NoError(t, err)
	require.Len(t, got, 1, "second row is a dupe entityId, third lacks issuedAt")
	require.Equal(t, "cred-1", got[0].CredentialID)
}

func TestStore_Revoke(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("UPDATE credential_metadata SET revoked_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Revoke(context.Background(), "cred-1", time.Now())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_Revoke_AlreadyRevokedReturnsFalse(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("UPDATE credential_metadata SET revoked_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Revoke(context.Background(), "cred-1", time.Now())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery("SELECT (.+) FROM credential_metadata WHERE credential_id").
		WillReturnError(sql.ErrNoRows)

	_, ok := store.Get(context.Background(), "cred-missing")
	require.False(t, ok)
}
