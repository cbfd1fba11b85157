// Package gatewayclient speaks the wire protocol to the external credential
// gateway: Pushed Authorization Requests, token exchange, and revocation.
// Built on go-resty/resty/v2, the HTTP client gravitational-teleport-plugins
// uses for its own outbound integrations, since the teacher repo itself has
// no dedicated outbound-HTTP client package to ground this on.
package gatewayclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	josev2 "gopkg.in/square/go-jose.v2"

	"github.com/tis-trainee/credential-broker/internal/apperrors"
)

// Config is the static configuration needed to reach the gateway.
type Config struct {
	AuthorizeEndpoint string
	PAREndpoint       string
	TokenEndpoint     string
	RevokeEndpoint    string
	JWKSEndpoint      string

	ClientID              string
	ClientSecret          string
	RedirectURIIdentity   string
	RedirectURICredential string
	OrganisationID        string

	Timeout time.Duration
}

// Client is the GatewayClient component.
type Client struct {
	cfg Config
	hc  *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := resty.New().SetTimeout(cfg.Timeout)
	return &Client{cfg: cfg, hc: hc}
}

// AuthorizeEndpoint exposes the configured authorize endpoint for URL building.
func (c *Client) AuthorizeEndpoint() string { return c.cfg.AuthorizeEndpoint }

// PARResult is the outcome of a successful PAR call.
type PARResult struct {
	RequestURI string
}

// PAR pushes an authorization request with an id_token_hint carrying the
// signed credential-data JWT. Expects 201 Created with a request_uri body
// field; any other outcome returns (nil, nil) — PAR failures degrade
// gracefully per spec.md section 7.
func (c *Client) PAR(ctx context.Context, idTokenHint, nonce, state, scope string) (*PARResult, error) {
	var body struct {
		RequestURI string `json:"request_uri"`
	}

	resp, err := c.hc.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"redirect_uri":  c.cfg.RedirectURICredential,
			"scope":         scope,
			"id_token_hint": idTokenHint,
			"nonce":         nonce,
			"state":         state,
		}).
		SetResult(&body).
		Post(c.cfg.PAREndpoint)

	if err != nil || resp.StatusCode() != 201 || body.RequestURI == "" {
		return nil, nil
	}
	return &PARResult{RequestURI: body.RequestURI}, nil
}

// TokenResult is the outcome of a successful token exchange: the raw id_token
// plus whatever claims the caller needs parsed out of it separately.
type TokenResult struct {
	IDToken string
}

// ExchangeCode exchanges an authorization code (optionally with a PKCE
// verifier) for tokens. Expects 2xx with an id_token body field; any other
// outcome returns (nil, nil) — empty claims, per spec.md section 7.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, state, redirectURI string) (*TokenResult, error) {
	var body struct {
		IDToken string `json:"id_token"`
	}

	form := map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"redirect_uri":  redirectURI,
		"grant_type":    "authorization_code",
		"code":          code,
		"state":         state,
	}
	if codeVerifier != "" {
		form["code_verifier"] = codeVerifier
	}

	resp, err := c.hc.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(form).
		SetResult(&body).
		Post(c.cfg.TokenEndpoint)

	if err != nil || resp.StatusCode() < 200 || resp.StatusCode() >= 300 || body.IDToken == "" {
		return nil, nil
	}
	return &TokenResult{IDToken: body.IDToken}, nil
}

// RevocationReason is sent to the gateway's revoke endpoint.
const RevocationReason = "DATA_SUPERSEDED"

// Revoke asks the gateway to revoke a previously issued credential by serial
// number. Expects 204; any non-2xx is a GatewayFailure that propagates to the caller.
func (c *Client) Revoke(ctx context.Context, templateName, serialNumber string) error {
	resp, err := c.hc.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(map[string]string{
			"client_id":             c.cfg.ClientID,
			"client_secret":         c.cfg.ClientSecret,
			"OrganisationId":        c.cfg.OrganisationID,
			"CredentialTemplateName": templateName,
			"SerialNumber":          serialNumber,
			"RevocationReason":      RevocationReason,
		}).
		Post(c.cfg.RevokeEndpoint)

	if err != nil {
		return &apperrors.GatewayFailure{Operation: "revoke", Status: 0}
	}
	if resp.StatusCode() != 204 {
		return &apperrors.GatewayFailure{Operation: "revoke", Status: resp.StatusCode()}
	}
	return nil
}

// FetchJWKS implements internal/keyresolver.JWKSFetcher.
func (c *Client) FetchJWKS(ctx context.Context) (*josev2.JSONWebKeySet, error) {
	var jwks josev2.JSONWebKeySet
	resp, err := c.hc.R().
		SetContext(ctx).
		SetResult(&jwks).
		Get(c.cfg.JWKSEndpoint)
	if err != nil || resp.StatusCode() != 200 {
		return nil, nil
	}
	return &jwks, nil
}
