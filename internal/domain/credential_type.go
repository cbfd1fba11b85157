// Package domain holds the wire- and storage-independent shapes this broker
// operates on: credential types, the data issued into a credential, identity
// proofs, signed envelopes, and the persistent records that track issuance
// and upstream modification.
package domain

import "fmt"

// CredentialType is the closed set of credentials this broker can issue.
// It is invariant for the lifetime of a credential once chosen.
type CredentialType int

const (
	// TrainingProgramme describes a trainee's membership of a training programme.
	TrainingProgramme CredentialType = iota + 1
	// TrainingPlacement describes a trainee's clinical placement.
	TrainingPlacement
)

// DisplayName is the human-readable name stored alongside issued credentials.
func (t CredentialType) DisplayName() string {
	switch t {
	case TrainingProgramme:
		return "TRAINING_PROGRAMME"
	case TrainingPlacement:
		return "TRAINING_PLACEMENT"
	default:
		return "UNKNOWN"
	}
}

// IssuanceScope is the OIDC scope requested at PAR time, always prefixed "issue.".
func (t CredentialType) IssuanceScope() string {
	switch t {
	case TrainingProgramme:
		return "issue.TrainingProgramme"
	case TrainingPlacement:
		return "issue.TrainingPlacement"
	default:
		return ""
	}
}

// TemplateName is the name the gateway's revoke endpoint expects, with no "issue." prefix.
func (t CredentialType) TemplateName() string {
	switch t {
	case TrainingProgramme:
		return "TrainingProgramme"
	case TrainingPlacement:
		return "TrainingPlacement"
	default:
		return ""
	}
}

func (t CredentialType) String() string {
	return t.DisplayName()
}

// Valid reports whether t is one of the closed set of known types.
func (t CredentialType) Valid() bool {
	return t == TrainingProgramme || t == TrainingPlacement
}

// ParseCredentialType resolves a path suffix ("programme-membership", "placement")
// or a display name ("TRAINING_PROGRAMME") to a CredentialType.
func ParseCredentialType(s string) (CredentialType, error) {
	switch s {
	case "programme-membership", "TRAINING_PROGRAMME", "TrainingProgramme":
		return TrainingProgramme, nil
	case "placement", "TRAINING_PLACEMENT", "TrainingPlacement":
		return TrainingPlacement, nil
	default:
		return 0, fmt.Errorf("domain: unrecognised credential type %q", s)
	}
}
