package domain

import "time"

// EnvelopeSignature is the HMAC envelope attached to every signed payload.
type EnvelopeSignature struct {
	SignedAt   time.Time
	ValidUntil time.Time
	HMAC       string
}

// SignedEnvelope wraps a payload of type T with its signature block. T is
// typically ProgrammeData, PlacementData, or IdentityData as received over the wire.
type SignedEnvelope[T any] struct {
	Payload   T
	Signature EnvelopeSignature
}
