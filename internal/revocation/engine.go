// Package revocation implements the RevocationEngine: the single place that
// decides whether issued credentials have gone stale and revokes them both
// at the gateway and in the local CredentialStore. Concurrent gateway-revoke
// calls for the same credentialId are de-duplicated with
// golang.org/x/sync/singleflight.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/singleflight"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
	"github.com/tis-trainee/credential-broker/internal/clock"
	"github.com/tis-trainee/credential-broker/internal/credstore"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/modlog"
)

// Engine is the RevocationEngine component.
type Engine struct {
	store   *credstore.Store
	modlog  *modlog.Log
	gateway *gatewayclient.Client
	clock   clock.Clock
	group   singleflight.Group
}

func New(store *credstore.Store, log *modlog.Log, gateway *gatewayclient.Client, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{store: store, modlog: log, gateway: gateway, clock: clk}
}

// Revoke implements revoke(entityId, credentialType, timestamp?): upserts the
// ModificationLog, then gateway-revokes and locally revokes every non-revoked
// CredentialStore row for (credentialType, entityId). A per-row
// GATEWAY_FAILURE is propagated to the caller without touching that row's
// local record; rows processed before the failure remain revoked.
func (e *Engine) Revoke(ctx context.Context, entityID string, credentialType domain.CredentialType, timestamp time.Time, fingerprint string) error {
	if timestamp.IsZero() {
		timestamp = e.clock.Now().UTC()
	}
	if err := e.modlog.Upsert(ctx, entityID, credentialType, timestamp, fingerprint); err != nil {
		return err
	}

	matches, err := e.store.ByEntity(ctx, credentialType, entityID)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		logx.WithContext(ctx).Infof("revocation: no live credentials for %s/%s", credentialType, entityID)
		return nil
	}

	for _, m := range matches {
		if err := e.revokeOne(ctx, m.CredentialID, credentialType, timestamp); err != nil {
			return err
		}
	}
	return nil
}

// RevokeIfStale implements revokeIfStale(credentialId, entityId,
// credentialType, since) -> bool. Absence of a ModificationLog entry means
// "never modified since issuance" and returns false, not stale. Staleness
// requires lastModifiedAt strictly after since; equal timestamps are not stale.
func (e *Engine) RevokeIfStale(ctx context.Context, credentialID, entityID string, credentialType domain.CredentialType, since time.Time) (bool, error) {
	lastModified, ok := e.modlog.Get(ctx, entityID, credentialType)
	if !ok {
		return false, nil
	}
	if !lastModified.After(since) {
		return false, nil
	}

	if err := e.revokeOne(ctx, credentialID, credentialType, e.clock.Now().UTC()); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeUnconditionally gateway-revokes a single just-minted credentialId
// without consulting the ModificationLog, for callers that already know
// freshness cannot be established (e.g. IssuanceFlow when its own baseline
// timestamp expired from the correlation cache before the callback arrived).
func (e *Engine) RevokeUnconditionally(ctx context.Context, credentialID string, credentialType domain.CredentialType) error {
	return e.revokeOne(ctx, credentialID, credentialType, e.clock.Now().UTC())
}

// revokeOne gateway-revokes and locally revokes a single credentialId,
// collapsing concurrent callers for the same id into one gateway call.
func (e *Engine) revokeOne(ctx context.Context, credentialID string, credentialType domain.CredentialType, now time.Time) error {
	_, err, _ := e.group.Do(credentialID, func() (interface{}, error) {
		if gwErr := e.gateway.Revoke(ctx, credentialType.TemplateName(), credentialID); gwErr != nil {
			logx.WithContext(ctx).Errorf("revocation: gateway revoke failed for %s: %v", credentialID, gwErr)
			if gf, ok := gwErr.(*apperrors.GatewayFailure); ok {
				return nil, gf
			}
			return nil, fmt.Errorf("revocation: gateway revoke failed: %w", gwErr)
		}
		if _, err := e.store.Revoke(ctx, credentialID, now); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
