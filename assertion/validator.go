// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package assertion implements the iSHARE M2M authentication checks a token
// endpoint runs over a client assertion before issuing an access token, see
// https://dev.ishare.eu/m2m/authentication.html
package assertion

import (
	"crypto/x509"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// The scheme fixes these request parameters to single literal values.
const (
	GrantTypeClientCredentials   = "client_credentials"
	ScopeIShare                  = "iSHARE"
	ClientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// AssertionLifetime is the exact validity window a client assertion must
// declare: exp - iat must equal 30 seconds, shorter windows are rejected too.
const AssertionLifetime = 30 * time.Second

const tokenType = "JWT"

// Request bundles the parameters of one client_credentials token request.
// It is owned by the caller for the duration of a single validation call.
type Request struct {
	ClientID            string
	ClientAssertion     string
	Audience            string
	GrantType           string
	Scope               string
	ClientAssertionType string
	StrictEORI          bool
}

// ValidateClientAssertion checks whether the request's client assertion is
// acceptable proof that ClientID controls the presented certificate, right
// now, for this audience. The checks run in a fixed order and the first
// failing check rejects the request with its own error kind; later checks
// never run once an earlier one failed. On success the verified claims are
// returned unmodified.
func ValidateClientAssertion(req Request) (*Claims, error) {
	if req.GrantType != GrantTypeClientCredentials {
		return nil, reject(KindInvalidGrantType)
	}

	if req.Scope != ScopeIShare {
		return nil, reject(KindInvalidScope)
	}

	if req.ClientAssertionType != ClientAssertionTypeJWTBearer {
		return nil, reject(KindInvalidClientAssertionType)
	}

	// The header is read without verifying the signature. It is attacker
	// controlled at this point and only used to select verification
	// material, never trusted for claims.
	headers, err := unverifiedHeaders(req.ClientAssertion)
	if err != nil {
		return nil, newError(KindAssertionUnverifiable, err)
	}

	// Only RS256 is accepted. Symmetric algorithms and "none" would let a
	// client forge assertions from public certificate material alone.
	if headers.Algorithm() != jwa.RS256 {
		return nil, reject(KindInvalidTokenAlgorithm)
	}

	if headers.Type() != tokenType {
		return nil, reject(KindInvalidTokenType)
	}

	chain := headers.X509CertChain()
	if chain == nil || chain.Len() < 1 {
		return nil, reject(KindInvalidCertificate)
	}

	certs, err := decodeCertChain(chain)
	if err != nil {
		return nil, newError(KindAssertionUnverifiable, err)
	}

	token, err := verifyWithChain(req.ClientAssertion, certs, req.Audience)
	if err != nil {
		return nil, err
	}

	if !IsValidEORI(req.ClientID, req.StrictEORI) {
		return nil, reject(KindInvalidClientID)
	}

	// The assertion's self-asserted identity must be the identity the
	// client claims to authenticate as.
	if token.Subject() != req.ClientID || token.Issuer() != req.ClientID {
		return nil, reject(KindInvalidIssuerOrSubscriber)
	}

	if token.JwtID() == "" {
		return nil, reject(KindInvalidTokenJTI)
	}

	if unixOrZero(token.Expiration())-unixOrZero(token.IssuedAt()) != int64(AssertionLifetime/time.Second) {
		return nil, reject(KindTokenExpirationInvalid)
	}

	return claimsFromToken(token), nil
}

func unverifiedHeaders(encodedAssertion string) (jws.Headers, error) {
	msg, err := jws.Parse([]byte(encodedAssertion))
	if err != nil {
		return nil, err
	}
	signatures := msg.Signatures()
	if len(signatures) == 0 {
		return nil, errors.New("assertion carries no signature")
	}
	return signatures[0].ProtectedHeaders(), nil
}

// verifyWithChain verifies the assertion's signature against the embedded
// certificates and validates exp, iat and aud. The scheme does not mandate
// which certificate of the chain must verify the signature, so every entry is
// tried until one succeeds. A validation failure after a successful signature
// check is classified immediately; signature failures move on to the next
// certificate and surface unclassified once the chain is exhausted.
func verifyWithChain(encodedAssertion string, certs []*x509.Certificate, audience string) (jwt.Token, error) {
	var lastErr error
	for _, c := range certs {
		token, err := jwt.Parse([]byte(encodedAssertion),
			jwt.WithKey(jwa.RS256, c.PublicKey),
			jwt.WithAudience(audience),
			jwt.WithValidate(true))
		if err == nil {
			return token, nil
		}
		switch {
		case errors.Is(err, jwt.ErrTokenExpired()):
			return nil, newError(KindTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenNotYetValid()), errors.Is(err, jwt.ErrInvalidIssuedAt()):
			return nil, newError(KindTokenNotValidYet, err)
		case errors.Is(err, jwt.ErrInvalidAudience()):
			return nil, newError(KindInvalidAudience, err)
		}
		lastErr = err
	}
	return nil, newError(KindAssertionUnverifiable, lastErr)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
