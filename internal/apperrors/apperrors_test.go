package apperrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "bad request: missing field", (&BadRequest{Reason: "missing field"}).Error())
	assert.Equal(t, "forbidden: stale signature", (&Forbidden{Reason: "stale signature"}).Error())
	assert.Equal(t, "unauthorized: no verified session", (&Unauthorized{Realm: "x"}).Error())
	assert.Equal(t, "bad token: malformed", (&BadToken{Reason: "malformed"}).Error())
	assert.Equal(t, `untrusted issuer: "https://evil.example"`, (&UntrustedIssuer{Issuer: "https://evil.example"}).Error())
	assert.Equal(t, "gateway failure during revoke: status 500", (&GatewayFailure{Operation: "revoke", Status: 500}).Error())
	assert.Equal(t, "not found: issuedAt", (&NotFound{Reason: "issuedAt"}).Error())
}

func TestErrorTypesImplementErrorInterface(t *testing.T) {
	var errs = []error{
		&BadRequest{},
		&Forbidden{},
		&Unauthorized{},
		&BadToken{},
		&UntrustedIssuer{},
		&GatewayFailure{},
		&NotFound{},
	}
	for _, e := range errs {
		assert.NotEmpty(t, e.Error())
	}
}
