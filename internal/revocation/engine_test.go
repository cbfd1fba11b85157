package revocation

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/tis-trainee/credential-broker/internal/credstore"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/modlog"
)

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestEngine_Revoke_NoLiveCredentials(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectExec("INSERT INTO modification_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM credential_metadata").WillReturnRows(
		sqlmock.NewRows([]string{"id", "credential_id", "subject_id", "entity_id", "credential_type", "issued_at", "expires_at", "revoked_at", "created_at", "updated_at"}))

	gw := gatewayclient.New(gatewayclient.Config{})
	e := New(credstore.New(db), modlog.New(db), gw, nil)

	err := e.Revoke(context.Background(), "entity-1", domain.TrainingProgramme, time.Now(), "fp")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Revoke_RevokesMatchingCredential(t *testing.T) {
	db, mock := newTestDB(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO modification_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM credential_metadata").WillReturnRows(
		sqlmock.NewRows([]string{"id", "credential_id", "subject_id", "entity_id", "credential_type", "issued_at", "expires_at", "revoked_at", "created_at", "updated_at"}).
			AddRow("11111111-1111-1111-1111-111111111111", "cred-1", "trainee-1", "entity-1", "TRAINING_PROGRAMME", now, now.Add(time.Hour), nil, now, now))
	mock.ExpectExec("UPDATE credential_metadata SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 1))

	gatewayCalled := false
	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalled = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer gwSrv.Close()

	gw := gatewayclient.New(gatewayclient.Config{RevokeEndpoint: gwSrv.URL})
	e := New(credstore.New(db), modlog.New(db), gw, nil)

	err := e.Revoke(context.Background(), "entity-1", domain.TrainingProgramme, now, "fp")
	require.NoError(t, err)
	require.True(t, gatewayCalled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_RevokeIfStale_AbsentLogIsNotStale(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectQuery("SELECT last_modified_at").WillReturnError(sql.ErrNoRows)

	gw := gatewayclient.New(gatewayclient.Config{})
	e := New(credstore.New(db), modlog.New(db), gw, nil)

	stale, err := e.RevokeIfStale(context.Background(), "cred-1", "entity-1", domain.TrainingProgramme, time.Now())
	require.NoError(t, err)
	require.False(t, stale)
}

func TestEngine_RevokeIfStale_EqualTimestampIsNotStale(t *testing.T) {
	db, mock := newTestDB(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"last_modified_at", "fingerprint"}).AddRow(now, "fp")
	mock.ExpectQuery("SELECT last_modified_at").WillReturnRows(rows)

	gw := gatewayclient.New(gatewayclient.Config{})
	e := New(credstore.New(db), modlog.New(db), gw, nil)

	stale, err := e.RevokeIfStale(context.Background(), "cred-1", "entity-1", domain.TrainingProgramme, now)
	require.NoError(t, err)
	require.False(t, stale, "equal timestamps must not be treated as stale")
}

func TestEngine_RevokeIfStale_StrictlyAfterIsStale(t *testing.T) {
	db, mock := newTestDB(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"last_modified_at", "fingerprint"}).AddRow(now.Add(time.Minute), "fp")
	mock.ExpectQuery("SELECT last_modified_at").WillReturnRows(rows)
	mock.ExpectExec("UPDATE credential_metadata SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 1))

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer gwSrv.Close()

	gw := gatewayclient.New(gatewayclient.Config{RevokeEndpoint: gwSrv.URL})
	e := New(credstore.New(db), modlog.New(db), gw, nil)

	stale, err := e.RevokeIfStale(context.Background(), "cred-1", "entity-1", domain.TrainingProgramme, now)
	require.NoError(t, err)
	require.True(t, stale)
}

func TestEngine_RevokeOne_GatewayFailurePropagates(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectExec("INSERT INTO modification_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM credential_metadata").WillReturnRows(
		sqlmock.NewRows([]string{"id", "credential_id", "subject_id", "entity_id", "credential_type", "issued_at", "expires_at", "revoked_at", "created_at", "updated_at"}).
			AddRow("11111111-1111-1111-1111-111111111111", "cred-1", "trainee-1", "entity-1", "TRAINING_PROGRAMME", time.Now(), time.Now(), nil, time.Now(), time.Now()))

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gwSrv.Close()

	gw := gatewayclient.New(gatewayclient.Config{RevokeEndpoint: gwSrv.URL})
	e := New(credstore.New(db), modlog.New(db), gw, nil)

	err := e.Revoke(context.Background(), "entity-1", domain.TrainingProgramme, time.Now(), "fp")
	require.Error(t, err)
}
