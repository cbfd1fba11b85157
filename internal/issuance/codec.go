package issuance

import (
	"encoding/json"
	"time"

	"github.com/tis-trainee/credential-broker/internal/domain"
)

// wireCredentialData is the JSON shape cached against CREDENTIAL_DATA while
// the gateway round-trip is in flight.
type wireCredentialData struct {
	Type      domain.CredentialType `json:"type"`
	Programme *domain.ProgrammeData `json:"programme,omitempty"`
	Placement *domain.PlacementData `json:"placement,omitempty"`
}

func encodeCredentialData(d domain.CredentialData) string {
	b, err := json.Marshal(wireCredentialData{Type: d.Type, Programme: d.Programme, Placement: d.Placement})
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeCredentialData(s string) (domain.CredentialData, error) {
	var w wireCredentialData
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return domain.CredentialData{}, err
	}
	return domain.CredentialData{Type: w.Type, Programme: w.Programme, Placement: w.Placement}, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
