// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

package assertion

import "fmt"

// Kind identifies the pipeline check that rejected a client assertion.
type Kind string

const (
	KindInvalidGrantType           Kind = "invalid_grant_type"
	KindInvalidScope               Kind = "invalid_scope"
	KindInvalidClientAssertionType Kind = "invalid_client_assertion_type"
	KindInvalidTokenAlgorithm      Kind = "invalid_token_algorithm"
	KindInvalidTokenType           Kind = "invalid_token_type"
	KindInvalidCertificate         Kind = "invalid_certificate"
	KindTokenExpired               Kind = "token_expired"
	KindTokenNotValidYet           Kind = "token_not_valid_yet"
	KindInvalidAudience            Kind = "invalid_audience"
	KindInvalidClientID            Kind = "invalid_client_id"
	KindInvalidIssuerOrSubscriber  Kind = "invalid_token_issuer_or_subscriber"
	KindInvalidTokenJTI            Kind = "invalid_token_jti"
	KindTokenExpirationInvalid     Kind = "token_expiration_invalid"

	// KindAssertionUnverifiable covers rejections the scheme does not name
	// individually: bad signature, malformed token structure or x5c material
	// that cannot be decoded.
	KindAssertionUnverifiable Kind = "assertion_unverifiable"
)

var kindMessages = map[Kind]string{
	KindInvalidGrantType:           "grant_type must be 'client_credentials'",
	KindInvalidScope:               "scope must be 'iSHARE'",
	KindInvalidClientAssertionType: "client_assertion_type must be the jwt-bearer urn",
	KindInvalidTokenAlgorithm:      "client assertion must be signed with RS256",
	KindInvalidTokenType:           "client assertion header typ must be 'JWT'",
	KindInvalidCertificate:         "client assertion header must carry at least one x5c certificate",
	KindTokenExpired:               "client assertion is expired",
	KindTokenNotValidYet:           "client assertion is not valid yet",
	KindInvalidAudience:            "client assertion audience does not match",
	KindInvalidClientID:            "client_id is not a valid iSHARE EORI",
	KindInvalidIssuerOrSubscriber:  "client assertion iss/sub do not match client_id",
	KindInvalidTokenJTI:            "client assertion carries no jti",
	KindTokenExpirationInvalid:     "client assertion lifetime must be exactly 30 seconds",
	KindAssertionUnverifiable:      "client assertion could not be verified",
}

// Error is the only error type returned by ValidateClientAssertion. Every
// rejection carries exactly one Kind; callers branch on it with errors.Is
// against the exported sentinels or with errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	msg, ok := kindMessages[e.Kind]
	if !ok {
		msg = string(e.Kind)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so wrapped rejections compare equal
// to the sentinels below regardless of their cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks, one per rejection reason.
var (
	ErrInvalidGrantType           = &Error{Kind: KindInvalidGrantType}
	ErrInvalidScope               = &Error{Kind: KindInvalidScope}
	ErrInvalidClientAssertionType = &Error{Kind: KindInvalidClientAssertionType}
	ErrInvalidTokenAlgorithm      = &Error{Kind: KindInvalidTokenAlgorithm}
	ErrInvalidTokenType           = &Error{Kind: KindInvalidTokenType}
	ErrInvalidCertificate         = &Error{Kind: KindInvalidCertificate}
	ErrTokenExpired               = &Error{Kind: KindTokenExpired}
	ErrTokenNotValidYet           = &Error{Kind: KindTokenNotValidYet}
	ErrInvalidAudience            = &Error{Kind: KindInvalidAudience}
	ErrInvalidClientID            = &Error{Kind: KindInvalidClientID}
	ErrInvalidIssuerOrSubscriber  = &Error{Kind: KindInvalidIssuerOrSubscriber}
	ErrInvalidTokenJTI            = &Error{Kind: KindInvalidTokenJTI}
	ErrTokenExpirationInvalid     = &Error{Kind: KindTokenExpirationInvalid}
	ErrAssertionUnverifiable      = &Error{Kind: KindAssertionUnverifiable}
)

func newError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

func reject(kind Kind) error {
	return &Error{Kind: kind}
}
