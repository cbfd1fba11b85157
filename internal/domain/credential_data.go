package domain

import "time"

// Metadata is the constant provenance block mapping-time derives and attaches
// to every piece of credential data. Callers never supply it; it is built
// from configuration plus today's date (lastRefresh).
type Metadata struct {
	Origin             string
	AssurancePolicy    string
	AssuranceOutcome   string
	Provider           string
	Verifier           string
	VerificationMethod string
	Pedigree           string
	LastRefresh        time.Time
}

// ProgrammeData is the CredentialData variant for TRAINING_PROGRAMME.
type ProgrammeData struct {
	SubjectID     string
	EntityID      string
	ProgrammeName string
	StartDate     time.Time
	EndDate       time.Time
	Metadata      Metadata
}

// PlacementData is the CredentialData variant for TRAINING_PLACEMENT.
type PlacementData struct {
	SubjectID           string
	EntityID            string
	Specialty           string
	Grade               string
	NationalPostNumber  string // optional, reserved
	EmployingBody       string
	Site                string
	StartDate           time.Time
	EndDate             time.Time
	Metadata            Metadata
}

// CredentialData is a tagged variant over {Programme, Placement}. Exactly one
// of Programme/Placement is set, selected by Type.
type CredentialData struct {
	Type      CredentialType
	Programme *ProgrammeData
	Placement *PlacementData
}

// EntityID returns the upstream record id carried by whichever variant is set.
func (c CredentialData) EntityID() string {
	switch c.Type {
	case TrainingProgramme:
		if c.Programme != nil {
			return c.Programme.EntityID
		}
	case TrainingPlacement:
		if c.Placement != nil {
			return c.Placement.EntityID
		}
	}
	return ""
}

// SubjectID returns the trainee id carried by whichever variant is set.
func (c CredentialData) SubjectID() string {
	switch c.Type {
	case TrainingProgramme:
		if c.Programme != nil {
			return c.Programme.SubjectID
		}
	case TrainingPlacement:
		if c.Placement != nil {
			return c.Placement.SubjectID
		}
	}
	return ""
}

// Validate enforces the "all string fields required non-empty except
// nationalPostNumber" / "all dates required" invariants from the data model.
func (c CredentialData) Validate() error {
	switch c.Type {
	case TrainingProgramme:
		p := c.Programme
		if p == nil {
			return errRequired("programme data")
		}
		if p.SubjectID == "" || p.EntityID == "" || p.ProgrammeName == "" {
			return errRequired("programme fields")
		}
		if p.StartDate.IsZero() || p.EndDate.IsZero() {
			return errRequired("programme dates")
		}
	case TrainingPlacement:
		p := c.Placement
		if p == nil {
			return errRequired("placement data")
		}
		if p.SubjectID == "" || p.EntityID == "" || p.Specialty == "" || p.Grade == "" ||
			p.EmployingBody == "" || p.Site == "" {
			return errRequired("placement fields")
		}
		if p.StartDate.IsZero() || p.EndDate.IsZero() {
			return errRequired("placement dates")
		}
	default:
		return errRequired("credential type")
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

func errRequired(what string) error {
	return validationError("domain: missing required " + what)
}
