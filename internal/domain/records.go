package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialMetadata is the persistent record of an issued credential.
// credentialID is the gateway-assigned primary key; ID is a synthetic
// surrogate row key, matching the teacher's BaseModel convention.
type CredentialMetadata struct {
	ID             uuid.UUID
	CredentialID   string
	SubjectID      string
	EntityID       string
	CredentialType string // stored as CredentialType.DisplayName()
	IssuedAt       time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Revoked reports whether this row has been revoked.
func (m CredentialMetadata) Revoked() bool {
	return m.RevokedAt != nil
}

// ModificationRecord is the upstream freshness marker for (entityId, credentialType).
type ModificationRecord struct {
	EntityID       string
	CredentialType string
	LastModifiedAt time.Time
	// Fingerprint is the MD5 hex digest EventIngress computed for the update
	// that produced this record, if any. Not currently consulted for
	// revocation decisions (see SPEC_FULL.md open question #1).
	Fingerprint string
}
