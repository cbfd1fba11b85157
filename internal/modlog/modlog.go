// Package modlog implements the ModificationLog: an append/upsert store
// mapping (entityId, credentialType) -> lastModifiedAt, backed by Postgres
// via jmoiron/sqlx the same way the teacher's shared/repository does.
package modlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/domain"
)

const (
	upsertQuery = `
		INSERT INTO modification_log (entity_id, credential_type, last_modified_at, fingerprint)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id, credential_type)
		DO UPDATE SET last_modified_at = EXCLUDED.last_modified_at, fingerprint = EXCLUDED.fingerprint
		WHERE modification_log.last_modified_at <= EXCLUDED.last_modified_at`

	selectQuery = `
		SELECT last_modified_at, COALESCE(fingerprint, '') AS fingerprint
		FROM modification_log
		WHERE entity_id = $1 AND credential_type = $2`
)

// Log is the ModificationLog component.
type Log struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Log {
	return &Log{db: db}
}

// Upsert records lastModifiedAt for (entityID, credentialType). Concurrent
// upserts for the same key are resolved by the WHERE clause above: the
// write carrying the later timestamp always wins regardless of arrival order.
func (l *Log) Upsert(ctx context.Context, entityID string, credentialType domain.CredentialType, lastModifiedAt time.Time, fingerprint string) error {
	_, err := l.db.ExecContext(ctx, upsertQuery, entityID, credentialType.DisplayName(), lastModifiedAt.UTC(), fingerprint)
	if err != nil {
		logx.WithContext(ctx).Errorf("modlog: upsert %s/%s failed: %v", entityID, credentialType, err)
		return fmt.Errorf("modlog: upsert failed: %w", err)
	}
	return nil
}

// Get returns the last-modified timestamp for (entityID, credentialType), or
// (zero, false) if no record exists yet.
func (l *Log) Get(ctx context.Context, entityID string, credentialType domain.CredentialType) (time.Time, bool) {
	var row struct {
		LastModifiedAt time.Time `db:"last_modified_at"`
		Fingerprint    string    `db:"fingerprint"`
	}
	err := l.db.GetContext(ctx, &row, selectQuery, entityID, credentialType.DisplayName())
	if err != nil {
		if err != sql.ErrNoRows {
			logx.WithContext(ctx).Errorf("modlog: get %s/%s failed: %v", entityID, credentialType, err)
		}
		return time.Time{}, false
	}
	return row.LastModifiedAt.UTC(), true
}

// GetRecord returns the full ModificationRecord, or (nil, false) if absent.
func (l *Log) GetRecord(ctx context.Context, entityID string, credentialType domain.CredentialType) (*domain.ModificationRecord, bool) {
	var row struct {
		LastModifiedAt time.Time `db:"last_modified_at"`
		Fingerprint    string    `db:"fingerprint"`
	}
	err := l.db.GetContext(ctx, &row, selectQuery, entityID, credentialType.DisplayName())
	if err != nil {
		return nil, false
	}
	return &domain.ModificationRecord{
		EntityID:       entityID,
		CredentialType: credentialType.DisplayName(),
		LastModifiedAt: row.LastModifiedAt.UTC(),
		Fingerprint:    row.Fingerprint,
	}, true
}
