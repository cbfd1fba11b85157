// Package issuance implements the IssuanceFlow state machine:
// START -> AWAITING_CALLBACK -> COMPLETE(SAVED | STALE | ERROR).
package issuance

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/tis-trainee/credential-broker/internal/clock"
	"github.com/tis-trainee/credential-broker/internal/correlation"
	"github.com/tis-trainee/credential-broker/internal/credstore"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/jwtcodec"
	"github.com/tis-trainee/credential-broker/internal/revocation"
)

// Flow is the IssuanceFlow component.
type Flow struct {
	cache      *correlation.Cache
	codec      *jwtcodec.Codec
	gateway    *gatewayclient.Client
	revocation *revocation.Engine
	store      *credstore.Store
	clock      clock.Clock
	logx.Logger
}

func New(cache *correlation.Cache, codec *jwtcodec.Codec, gateway *gatewayclient.Client, rev *revocation.Engine, store *credstore.Store, clk clock.Clock) *Flow {
	if clk == nil {
		clk = clock.New()
	}
	return &Flow{cache: cache, codec: codec, gateway: gateway, revocation: rev, store: store, clock: clk, Logger: logx.WithContext(context.Background())}
}

// Start pushes an authorization request for credentialData and returns the
// authorize URL carrying the resulting request_uri.
func (f *Flow) Start(ctx context.Context, authToken string, credentialData domain.CredentialData, clientState string) (string, error) {
	if err := credentialData.Validate(); err != nil {
		return "", err
	}

	claims, err := f.codec.ParseUnverified(authToken)
	if err != nil {
		return "", err
	}
	subjectID, _ := claims["custom:tisId"].(string)

	nonce := uuid.NewString()
	state := uuid.NewString()

	if err := f.cache.Put(ctx, correlation.FamilyCredentialData, nonce, encodeCredentialData(credentialData)); err != nil {
		return "", err
	}
	if clientState != "" {
		if err := f.cache.Put(ctx, correlation.FamilyClientState, state, clientState); err != nil {
			return "", err
		}
	}
	if err := f.cache.Put(ctx, correlation.FamilyTraineeSubjectID, state, subjectID); err != nil {
		return "", err
	}
	if err := f.cache.Put(ctx, correlation.FamilyIssuanceTimestamp, state, encodeTime(f.clock.Now().UTC())); err != nil {
		return "", err
	}

	idTokenHint, err := f.codec.Sign(credentialData)
	if err != nil {
		return "", err
	}

	par, err := f.gateway.PAR(ctx, idTokenHint, nonce, state, credentialData.Type.IssuanceScope())
	if err != nil || par == nil {
		return "", nil
	}

	q := url.Values{}
	q.Set("request_uri", par.RequestURI)
	return f.gateway.AuthorizeEndpoint() + "?" + q.Encode(), nil
}

// Complete handles the gateway callback: exchanges the code, decides
// staleness, persists or revokes, and always returns a redirect target.
func (f *Flow) Complete(ctx context.Context, code, state, errParam, errDescription, redirectURI string) string {
	clientState, _ := f.cache.Take(ctx, correlation.FamilyClientState, state)

	if errParam != "" || code == "" {
		return buildRedirect(clientState, errParam, errDescription)
	}

	tok, err := f.gateway.ExchangeCode(ctx, code, "", state, redirectURI)
	if err != nil || tok == nil {
		return buildRedirect(clientState, "", "")
	}

	claims, err := f.codec.ParseVerified(ctx, tok.IDToken)
	if err != nil {
		return buildRedirect(clientState, "", "")
	}

	nonce, _ := claims["nonce"].(string)
	credentialID, _ := claims["SerialNumber"].(string)
	issuedAt, _ := jwtcodec.EpochClaim(claims["iat"])
	expiresAt, _ := jwtcodec.EpochClaim(claims["exp"])

	subjectID, subjectOK := f.cache.Take(ctx, correlation.FamilyTraineeSubjectID, state)
	encodedData, dataOK := f.cache.Take(ctx, correlation.FamilyCredentialData, nonce)
	if !subjectOK || !dataOK {
		f.Logger.Infof("issuance: missing correlation state for nonce=%s state=%s", nonce, state)
		return buildRedirect(clientState, "", "")
	}

	credentialData, err := decodeCredentialData(encodedData)
	if err != nil {
		return buildRedirect(clientState, "", "")
	}

	baselineRaw, baselineOK := f.cache.Take(ctx, correlation.FamilyIssuanceTimestamp, state)
	if !baselineOK {
		// No captured baseline means freshness can't be established at all:
		// err toward revocation rather than trusting unverifiable data.
		if err := f.revocation.RevokeUnconditionally(ctx, credentialID, credentialData.Type); err != nil {
			f.Logger.Errorf("issuance: revoke-unknown-freshness failed for %s: %v", credentialID, err)
		}
		return buildRedirect(clientState, "unknown_data_freshness",
			"The issued credential data could not be verified and has been revoked")
	}
	baseline, err := decodeTime(baselineRaw)
	if err != nil {
		return buildRedirect(clientState, "", "")
	}

	revoked, err := f.revocation.RevokeIfStale(ctx, credentialID, credentialData.EntityID(), credentialData.Type, baseline)
	if err != nil {
		f.Logger.Errorf("issuance: revoke-if-stale failed for %s: %v", credentialID, err)
		return buildRedirect(clientState, "", "")
	}

	if revoked {
		return buildRedirect(clientState, "stale_data",
			"The issued credential data was stale and has been revoked")
	}

	meta := domain.CredentialMetadata{
		CredentialID:   credentialID,
		SubjectID:      subjectID,
		EntityID:       credentialData.EntityID(),
		CredentialType: credentialData.Type.DisplayName(),
		IssuedAt:       issuedAt,
		ExpiresAt:      expiresAt,
	}
	if err := f.store.Save(ctx, meta); err != nil {
		f.Logger.Errorf("issuance: save failed for %s: %v", credentialID, err)
		return buildRedirect(clientState, "", "")
	}

	return buildRedirect(clientState, "", "")
}

func buildRedirect(clientState, errParam, errDescription string) string {
	q := url.Values{}
	if clientState != "" {
		q.Set("state", clientState)
	}
	if errParam != "" {
		q.Set("error", errParam)
		q.Set("error_description", errDescription)
	}
	if len(q) == 0 {
		return "/credential-issued"
	}
	return "/credential-issued?" + q.Encode()
}
