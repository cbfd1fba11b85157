// Package credstore implements the CredentialStore: the persistent store of
// issued-credential metadata, keyed by credentialId with secondary lookups
// by (credentialType, entityId) and (credentialType, subjectId). Backed by
// Postgres via sqlx, following the same connection and query-method shape as
// the teacher's shared/repository.BaseRepository.
package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/domain"
)

const (
	insertQuery = `
		INSERT INTO credential_metadata
			(id, credential_id, subject_id, entity_id, credential_type, issued_at, expires_at, created_at, updated_at)
		VALUES (:id, :credential_id, :subject_id, :entity_id, :credential_type, :issued_at, :expires_at, :created_at, :updated_at)`

	selectByEntityQuery = `
		SELECT id, credential_id, subject_id, entity_id, credential_type, issued_at, expires_at, revoked_at, created_at, updated_at
		FROM credential_metadata
		WHERE credential_type = $1 AND entity_id = $2 AND revoked_at IS NULL`

	selectBySubjectQuery = `
		SELECT id, credential_id, subject_id, entity_id, credential_type, issued_at, expires_at, revoked_at, created_at, updated_at
		FROM credential_metadata
		WHERE credential_type = $1 AND subject_id = $2 AND revoked_at IS NULL
		ORDER BY entity_id, issued_at DESC`

	selectByCredentialIDQuery = `
		SELECT id, credential_id, subject_id, entity_id, credential_type, issued_at, expires_at, revoked_at, created_at, updated_at
		FROM credential_metadata
		WHERE credential_id = $1`

	revokeQuery = `UPDATE credential_metadata SET revoked_at = $2, updated_at = $2 WHERE credential_id = $1 AND revoked_at IS NULL`
)

type row struct {
	ID             uuid.UUID    `db:"id"`
	CredentialID   string       `db:"credential_id"`
	SubjectID      string       `db:"subject_id"`
	EntityID       string       `db:"entity_id"`
	CredentialType string       `db:"credential_type"`
	IssuedAt       sql.NullTime `db:"issued_at"`
	ExpiresAt      sql.NullTime `db:"expires_at"`
	RevokedAt      sql.NullTime `db:"revoked_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func (r row) toDomain() domain.CredentialMetadata {
	m := domain.CredentialMetadata{
		ID:             r.ID,
		CredentialID:   r.CredentialID,
		SubjectID:      r.SubjectID,
		EntityID:       r.EntityID,
		CredentialType: r.CredentialType,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.IssuedAt.Valid {
		m.IssuedAt = r.IssuedAt.Time
	}
	if r.ExpiresAt.Valid {
		m.ExpiresAt = r.ExpiresAt.Time
	}
	if r.RevokedAt.Valid {
		t := r.RevokedAt.Time
		m.RevokedAt = &t
	}
	return m
}

// Store is the CredentialStore component.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Save persists a newly issued credential. Invariant: at most one non-revoked
// row per (credentialType, entityId) in normal operation — enforced at the
// flow level (IssuanceFlow never saves over an un-revoked stale credential).
func (s *Store) Save(ctx context.Context, m domain.CredentialMetadata) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	params := map[string]interface{}{
		"id":              m.ID,
		"credential_id":   m.CredentialID,
		"subject_id":      m.SubjectID,
		"entity_id":       m.EntityID,
		"credential_type": m.CredentialType,
		"issued_at":       m.IssuedAt,
		"expires_at":      m.ExpiresAt,
		"created_at":      m.CreatedAt,
		"updated_at":      m.UpdatedAt,
	}
	if _, err := s.db.NamedExecContext(ctx, insertQuery, params); err != nil {
		logx.WithContext(ctx).Errorf("credstore: save %s failed: %v", m.CredentialID, err)
		return fmt.Errorf("credstore: save failed: %w", err)
	}
	return nil
}

// ByEntity returns the non-revoked rows for (credentialType, entityId). In
// normal operation this is zero or one row; RevocationEngine iterates all
// matches defensively in case the invariant was ever violated upstream.
func (s *Store) ByEntity(ctx context.Context, credentialType domain.CredentialType, entityID string) ([]domain.CredentialMetadata, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, selectByEntityQuery, credentialType.DisplayName(), entityID); err != nil {
		logx.WithContext(ctx).Errorf("credstore: by-entity %s/%s failed: %v", credentialType, entityID, err)
		return nil, err
	}
	out := make([]domain.CredentialMetadata, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// LatestBySubject returns the latest non-revoked credential per distinct
// entityId for a subject, satisfying the GET endpoints' "one per distinct
// entityId" requirement.
func (s *Store) LatestBySubject(ctx context.Context, credentialType domain.CredentialType, subjectID string) ([]domain.CredentialMetadata, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, selectBySubjectQuery, credentialType.DisplayName(), subjectID); err != nil {
		logx.WithContext(ctx).Errorf("credstore: latest-by-subject %s/%s failed: %v", credentialType, subjectID, err)
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	out := make([]domain.CredentialMetadata, 0, len(rows))
	for _, r := range rows {
		if seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		m := r.toDomain()
		if m.IssuedAt.IsZero() {
			// A record exists but lacks issuedAt: treat as data-integrity error
			// by excluding it rather than surfacing a half-populated credential.
			logx.WithContext(ctx).Errorf("credstore: credential %s has no issuedAt", m.CredentialID)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Revoke stamps revokedAt = now for credentialID, preferring history
// retention over deletion (spec.md section 9 open question #2). Returns
// (found, error); found is false if the row was already revoked or absent.
func (s *Store) Revoke(ctx context.Context, credentialID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, revokeQuery, credentialID, now.UTC())
	if err != nil {
		logx.WithContext(ctx).Errorf("credstore: revoke %s failed: %v", credentialID, err)
		return false, fmt.Errorf("credstore: revoke failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get looks up a single row by credentialId regardless of revocation state.
func (s *Store) Get(ctx context.Context, credentialID string) (domain.CredentialMetadata, bool) {
	var r row
	if err := s.db.GetContext(ctx, &r, selectByCredentialIDQuery, credentialID); err != nil {
		return domain.CredentialMetadata{}, false
	}
	return r.toDomain(), true
}
