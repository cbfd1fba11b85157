package credentials

import (
	"time"

	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/types"
)

func toViews(rows []domain.CredentialMetadata) []types.CredentialView {
	out := make([]types.CredentialView, 0, len(rows))
	for _, r := range rows {
		v := types.CredentialView{
			CredentialID:   r.CredentialID,
			SubjectID:      r.SubjectID,
			EntityID:       r.EntityID,
			CredentialType: r.CredentialType,
			IssuedAt:       r.IssuedAt.Format(time.RFC3339),
			ExpiresAt:      r.ExpiresAt.Format(time.RFC3339),
		}
		if r.RevokedAt != nil {
			v.RevokedAt = r.RevokedAt.Format(time.RFC3339)
		}
		out = append(out, v)
	}
	return out
}
