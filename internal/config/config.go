// Package config adapts the teacher's shared/config.Config shape (a
// rest.RestConf embed plus nested infra blocks) to this service's own
// dependencies: Postgres, Redis, the gateway's OIDC-style endpoints, and the
// HMAC/JWT secrets the signature gate and JWT codec need.
package config

import (
	"time"

	"github.com/zeromicro/go-zero/rest"

	"github.com/tis-trainee/credential-broker/third_party/cache"
	"github.com/tis-trainee/credential-broker/third_party/database"
)

type Config struct {
	rest.RestConf

	Database database.PostgresConfig
	Redis    cache.RedisConfig

	Gateway  GatewayConfig
	JWT      JWTConfig
	Queue    QueueConfig
	Metadata MetadataConfig
}

// MetadataConfig carries the seven provenance constants issuance stamps onto
// every credential's metadata block at mapping time (spec section 9:
// "constants derived at mapping time ... not inputs from the caller"). Only
// lastRefresh varies, and that comes from the injected clock, not from here.
type MetadataConfig struct {
	Origin             string `json:",default=TIS"`
	AssurancePolicy    string
	AssuranceOutcome   string
	Provider           string
	Verifier           string
	VerificationMethod string
	Pedigree           string
}

// GatewayConfig describes the external credential gateway's endpoints and
// this service's registered client credentials.
type GatewayConfig struct {
	AuthorizeEndpoint     string
	PAREndpoint           string
	TokenEndpoint         string
	RevokeEndpoint        string
	JWKSEndpoint          string
	ClientID              string `json:",env=GATEWAY_CLIENT_ID"`
	ClientSecret          string `json:",env=GATEWAY_CLIENT_SECRET"`
	RedirectURIIdentity   string
	RedirectURICredential string
	OrganisationID        string
	TimeoutSeconds        int64 `json:",default=10"`
	TrustedIssuers        []string
}

func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// JWTConfig carries the shared secrets used by internal/jwtcodec and
// internal/signature. Secrets come through env vars the same way the
// teacher's AuthConfig pulls AUTH_ACCESS_SECRET.
type JWTConfig struct {
	Audience        string
	Issuer          string
	SigningKey      string `json:",env=JWT_SIGNING_KEY"`
	EnvelopeSecret  string `json:",env=ENVELOPE_HMAC_SECRET"`
	LifetimeDaysDefault int64 `json:",default=30"`
}

// QueueConfig names the consumer identity used on the Redis Streams consumer
// groups EventIngress registers against.
type QueueConfig struct {
	ConsumerName string `json:",default=credential-broker-1"`
}
