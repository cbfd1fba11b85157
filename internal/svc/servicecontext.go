package svc

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/rest"

	"github.com/tis-trainee/credential-broker/internal/clock"
	"github.com/tis-trainee/credential-broker/internal/config"
	"github.com/tis-trainee/credential-broker/internal/correlation"
	"github.com/tis-trainee/credential-broker/internal/credstore"
	"github.com/tis-trainee/credential-broker/internal/domain"
	"github.com/tis-trainee/credential-broker/internal/eventingress"
	"github.com/tis-trainee/credential-broker/internal/gatewayclient"
	"github.com/tis-trainee/credential-broker/internal/issuance"
	"github.com/tis-trainee/credential-broker/internal/jwtcodec"
	"github.com/tis-trainee/credential-broker/internal/keyresolver"
	"github.com/tis-trainee/credential-broker/internal/modlog"
	"github.com/tis-trainee/credential-broker/internal/revocation"
	"github.com/tis-trainee/credential-broker/internal/signature"
	"github.com/tis-trainee/credential-broker/internal/verification"
	"github.com/tis-trainee/credential-broker/third_party/cache"
	"github.com/tis-trainee/credential-broker/third_party/database"
)

// ServiceContext wires every component into the concrete dependency graph,
// following the shape of the teacher's svc.ServiceContext (config in, fully
// constructed collaborators and middleware out).
type ServiceContext struct {
	Config config.Config

	Redis      *redis.Client
	Cache      *correlation.Cache
	Clock      clock.Clock
	Gateway    *gatewayclient.Client
	KeyResolver *keyresolver.Resolver
	JWT        *jwtcodec.Codec
	ModLog     *modlog.Log
	CredStore  *credstore.Store
	Revocation *revocation.Engine
	Verify     *verification.Flow
	Issue      *issuance.Flow
	Ingress    *eventingress.Ingress

	SignatureGateVerify  rest.Middleware
	SignatureGateIssueP  rest.Middleware
	SignatureGateIssuePl rest.Middleware
	SessionGate          rest.Middleware
}

func NewServiceContext(c config.Config) *ServiceContext {
	db := database.MustConnect(c.Database)
	redisClient := cache.MustConnect(c.Redis)

	corrCache := correlation.New(redisClient)
	clk := clock.New()
	gw := gatewayclient.New(gatewayclient.Config{
		AuthorizeEndpoint:     c.Gateway.AuthorizeEndpoint,
		PAREndpoint:           c.Gateway.PAREndpoint,
		TokenEndpoint:         c.Gateway.TokenEndpoint,
		RevokeEndpoint:        c.Gateway.RevokeEndpoint,
		JWKSEndpoint:          c.Gateway.JWKSEndpoint,
		ClientID:              c.Gateway.ClientID,
		ClientSecret:          c.Gateway.ClientSecret,
		RedirectURIIdentity:   c.Gateway.RedirectURIIdentity,
		RedirectURICredential: c.Gateway.RedirectURICredential,
		OrganisationID:        c.Gateway.OrganisationID,
		Timeout:               c.Gateway.Timeout(),
	})

	trusted := make(map[string]struct{}, len(c.Gateway.TrustedIssuers))
	for _, iss := range c.Gateway.TrustedIssuers {
		trusted[iss] = struct{}{}
	}
	keyResolver := keyresolver.New(keyresolver.Config{TrustedIssuers: trusted}, corrCache, gw)

	defaultLifetime := time.Duration(c.JWT.LifetimeDaysDefault) * 24 * time.Hour
	lifetimes := map[domain.CredentialType]time.Duration{
		domain.TrainingProgramme: defaultLifetime,
		domain.TrainingPlacement: defaultLifetime,
	}
	codec, err := jwtcodec.New(jwtcodec.Config{
		Audience:   c.JWT.Audience,
		Issuer:     c.JWT.Issuer,
		SigningKey: c.JWT.SigningKey,
		Lifetimes:  lifetimes,
	}, keyResolver, clk)
	if err != nil {
		panic(err)
	}

	modLog := modlog.New(db)
	credStore := credstore.New(db)
	revEngine := revocation.New(credStore, modLog, gw, clk)
	verifyFlow := verification.New(corrCache, codec, gw)
	issueFlow := issuance.New(corrCache, codec, gw, revEngine, credStore, clk)
	ingress := eventingress.New(redisClient, revEngine, c.Queue.ConsumerName)

	envelopeSecret := []byte(c.JWT.EnvelopeSecret)
	programmeType := domain.TrainingProgramme
	placementType := domain.TrainingPlacement

	return &ServiceContext{
		Config:      c,
		Redis:       redisClient,
		Cache:       corrCache,
		Clock:       clk,
		Gateway:     gw,
		KeyResolver: keyResolver,
		JWT:         codec,
		ModLog:      modLog,
		CredStore:   credStore,
		Revocation:  revEngine,
		Verify:      verifyFlow,
		Issue:       issueFlow,
		Ingress:     ingress,

		SignatureGateVerify:  signature.New(envelopeSecret, modLog, clk, nil).Handle,
		SignatureGateIssueP:  signature.New(envelopeSecret, modLog, clk, &programmeType).Handle,
		SignatureGateIssuePl: signature.New(envelopeSecret, modLog, clk, &placementType).Handle,
		SessionGate:          signature.NewSessionGate(corrCache, codec).Handle,
	}
}
