package issue

import (
	"time"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/config"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/types"
)

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &apperrors.BadRequest{Reason: field + " must be an ISO date"}
	}
	return t, nil
}

// buildMetadata derives the provenance block as mapping-time constants from
// configuration, plus lastRefresh = now from the injected clock. Callers
// never supply any of this (spec.md section 9).
func buildMetadata(cfg config.MetadataConfig, now time.Time) domain.Metadata {
	return domain.Metadata{
		Origin:             cfg.Origin,
		AssurancePolicy:    cfg.AssurancePolicy,
		AssuranceOutcome:   cfg.AssuranceOutcome,
		Provider:           cfg.Provider,
		Verifier:           cfg.Verifier,
		VerificationMethod: cfg.VerificationMethod,
		Pedigree:           cfg.Pedigree,
		LastRefresh:        now.UTC(),
	}
}

func toProgrammeData(p types.ProgrammePayload, meta domain.Metadata) (domain.CredentialData, error) {
	start, err := parseDate("startDate", p.StartDate)
	if err != nil {
		return domain.CredentialData{}, err
	}
	end, err := parseDate("endDate", p.EndDate)
	if err != nil {
		return domain.CredentialData{}, err
	}

	data := domain.CredentialData{
		Type: domain.TrainingProgramme,
		Programme: &domain.ProgrammeData{
			SubjectID:     p.SubjectID,
			EntityID:      p.EntityID,
			ProgrammeName: p.ProgrammeName,
			StartDate:     start,
			EndDate:       end,
			Metadata:      meta,
		},
	}
	if err := data.Validate(); err != nil {
		return domain.CredentialData{}, &apperrors.BadRequest{Reason: err.Error()}
	}
	return data, nil
}

func toPlacementData(p types.PlacementPayload, meta domain.Metadata) (domain.CredentialData, error) {
	start, err := parseDate("startDate", p.StartDate)
	if err != nil {
		return domain.CredentialData{}, err
	}
	end, err := parseDate("endDate", p.EndDate)
	if err != nil {
		return domain.CredentialData{}, err
	}

	data := domain.CredentialData{
		Type: domain.TrainingPlacement,
		Placement: &domain.PlacementData{
			SubjectID:          p.SubjectID,
			EntityID:           p.EntityID,
			Specialty:          p.Specialty,
			Grade:              p.Grade,
			NationalPostNumber: p.NationalPostNumber,
			EmployingBody:      p.EmployingBody,
			Site:               p.Site,
			StartDate:          start,
			EndDate:            end,
			Metadata:           meta,
		},
	}
	if err := data.Validate(); err != nil {
		return domain.CredentialData{}, &apperrors.BadRequest{Reason: err.Error()}
	}
	return data, nil
}
