package domain

import (
	"strings"
	"time"
)

// IdentityData is the claimant identity gathered for identity verification.
type IdentityData struct {
	Forenames   string
	Surname     string
	DateOfBirth time.Time
}

// Validate enforces "forenames and surname required non-empty; dateOfBirth required".
func (i IdentityData) Validate() error {
	if strings.TrimSpace(i.Forenames) == "" || strings.TrimSpace(i.Surname) == "" {
		return errRequired("identity name fields")
	}
	if i.DateOfBirth.IsZero() {
		return errRequired("identity date of birth")
	}
	return nil
}

// Normalize trims whitespace and folds case, used before comparing identity
// claims returned by the gateway against the identity cached at verification start.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether i matches the claimed forenames/surname/DOB after
// case and whitespace normalization. Equality is exact post-normalization.
func (i IdentityData) Matches(forenames, surname, dateOfBirth string) bool {
	if Normalize(i.Forenames) != Normalize(forenames) {
		return false
	}
	if Normalize(i.Surname) != Normalize(surname) {
		return false
	}
	return i.DateOfBirth.Format("2006-01-02") == strings.TrimSpace(dateOfBirth)
}
