// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

package assertion_test

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishare-community/ishare-security-client-go/assertion"
	"github.com/ishare-community/ishare-security-client-go/testutil"
)

const (
	clientEORI = "EU.EORI.NL000000000000001"
	serverEORI = "EU.EORI.NL000000000000002"
)

func newBuilder(t *testing.T) *testutil.AssertionBuilder {
	t.Helper()
	builder, err := testutil.NewAssertionBuilder(clientEORI)
	require.NoError(t, err, "error creating test setup")
	return builder
}

func validRequest(clientAssertion string) assertion.Request {
	return assertion.Request{
		ClientID:            clientEORI,
		ClientAssertion:     clientAssertion,
		Audience:            serverEORI,
		GrantType:           assertion.GrantTypeClientCredentials,
		Scope:               assertion.ScopeIShare,
		ClientAssertionType: assertion.ClientAssertionTypeJWTBearer,
		StrictEORI:          true,
	}
}

func TestValidateClientAssertion_AcceptsValidAssertion(t *testing.T) {
	builder := newBuilder(t)
	claims := builder.DefaultClaims(serverEORI)
	claims["company_name"] = "Test Party BV"
	signed, err := builder.Sign(claims, builder.DefaultHeaders())
	require.NoError(t, err)

	got, err := assertion.ValidateClientAssertion(validRequest(signed))
	require.NoError(t, err)

	assert.Equal(t, clientEORI, got.Subject)
	assert.Equal(t, clientEORI, got.Issuer)
	assert.Equal(t, []string{serverEORI}, got.Audience)
	assert.Equal(t, claims["jti"], got.JWTID)
	assert.Equal(t, int64(30), got.ExpiresAt.Unix()-got.IssuedAt.Unix())

	// non-registered claims are passed through unmodified
	companyName, err := got.GetExtraAsString("company_name")
	require.NoError(t, err)
	assert.Equal(t, "Test Party BV", companyName)
}

func TestValidateClientAssertion_TriesEveryChainEntry(t *testing.T) {
	builder := newBuilder(t)
	unrelated, err := testutil.NewAssertionBuilder(clientEORI)
	require.NoError(t, err)

	// leaf entry doesn't verify the signature, the second one does
	headers := builder.DefaultHeaders()
	headers["x5c"] = append(unrelated.CertChainBase64(), builder.CertChainBase64()...)
	signed, err := builder.Sign(builder.DefaultClaims(serverEORI), headers)
	require.NoError(t, err)

	_, err = assertion.ValidateClientAssertion(validRequest(signed))
	assert.NoError(t, err)
}

func TestValidateClientAssertion_ParameterChecksPrecedeParsing(t *testing.T) {
	t.Run("grant type", func(t *testing.T) {
		req := validRequest("this is not even a token")
		req.GrantType = "authorization_code"
		_, err := assertion.ValidateClientAssertion(req)
		// rejected before the assertion string is ever parsed
		assert.ErrorIs(t, err, assertion.ErrInvalidGrantType)
	})

	t.Run("scope", func(t *testing.T) {
		req := validRequest("this is not even a token")
		req.Scope = "openid"
		_, err := assertion.ValidateClientAssertion(req)
		assert.ErrorIs(t, err, assertion.ErrInvalidScope)
	})

	t.Run("assertion type", func(t *testing.T) {
		req := validRequest("this is not even a token")
		req.ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:saml2-bearer"
		_, err := assertion.ValidateClientAssertion(req)
		assert.ErrorIs(t, err, assertion.ErrInvalidClientAssertionType)
	})

	t.Run("grant type is case-sensitive", func(t *testing.T) {
		req := validRequest("this is not even a token")
		req.GrantType = "Client_Credentials"
		_, err := assertion.ValidateClientAssertion(req)
		assert.ErrorIs(t, err, assertion.ErrInvalidGrantType)
	})
}

func TestValidateClientAssertion_HeaderChecks(t *testing.T) {
	builder := newBuilder(t)

	t.Run("malformed assertion", func(t *testing.T) {
		_, err := assertion.ValidateClientAssertion(validRequest("garbage.garbage.garbage"))
		assert.ErrorIs(t, err, assertion.ErrAssertionUnverifiable)
	})

	t.Run("symmetric algorithm rejected before signature check", func(t *testing.T) {
		signed, err := builder.SignWithKey(jwa.HS256, []byte("0123456789abcdef0123456789abcdef"),
			builder.DefaultClaims(serverEORI), builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidTokenAlgorithm)
	})

	t.Run("typ must be JWT", func(t *testing.T) {
		headers := builder.DefaultHeaders()
		headers["typ"] = "JOSE"
		signed, err := builder.Sign(builder.DefaultClaims(serverEORI), headers)
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidTokenType)
	})

	t.Run("missing x5c", func(t *testing.T) {
		headers := builder.DefaultHeaders()
		delete(headers, "x5c")
		signed, err := builder.Sign(builder.DefaultClaims(serverEORI), headers)
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidCertificate)
	})

	t.Run("undecodable x5c entry", func(t *testing.T) {
		headers := builder.DefaultHeaders()
		headers["x5c"] = []string{"bm90IGEgY2VydGlmaWNhdGU="}
		signed, err := builder.Sign(builder.DefaultClaims(serverEORI), headers)
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrAssertionUnverifiable)
	})
}

func TestValidateClientAssertion_VerificationChecks(t *testing.T) {
	builder := newBuilder(t)

	t.Run("expired assertion", func(t *testing.T) {
		claims := builder.DefaultClaims(serverEORI)
		iat := time.Now().Add(-2 * time.Minute).Truncate(time.Second)
		claims["iat"] = iat
		claims["exp"] = iat.Add(30 * time.Second)
		signed, err := builder.Sign(claims, builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrTokenExpired)
	})

	t.Run("assertion from the future", func(t *testing.T) {
		claims := builder.DefaultClaims(serverEORI)
		iat := time.Now().Add(2 * time.Minute).Truncate(time.Second)
		claims["iat"] = iat
		claims["exp"] = iat.Add(30 * time.Second)
		signed, err := builder.Sign(claims, builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrTokenNotValidYet)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		claims := builder.DefaultClaims("EU.EORI.NL000000000000003")
		signed, err := builder.Sign(claims, builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidAudience)
	})

	t.Run("signature from a key not in x5c", func(t *testing.T) {
		foreign, err := testutil.NewAssertionBuilder(clientEORI)
		require.NoError(t, err)

		signed, err := builder.SignWithKey(jwa.RS256, foreign.Key,
			builder.DefaultClaims(serverEORI), builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrAssertionUnverifiable)
	})
}

func TestValidateClientAssertion_ClaimChecks(t *testing.T) {
	builder := newBuilder(t)

	t.Run("client_id with invalid shape", func(t *testing.T) {
		signed, err := builder.Sign(builder.DefaultClaims(serverEORI), builder.DefaultHeaders())
		require.NoError(t, err)

		req := validRequest(signed)
		req.ClientID = "EU.EORI.nl000000000000001"
		_, err = assertion.ValidateClientAssertion(req)
		assert.ErrorIs(t, err, assertion.ErrInvalidClientID)
	})

	t.Run("client_id shape accepted without strict checking", func(t *testing.T) {
		other, err := testutil.NewAssertionBuilder("free-form-identifier")
		require.NoError(t, err)
		signed, err := other.Sign(other.DefaultClaims(serverEORI), other.DefaultHeaders())
		require.NoError(t, err)

		req := validRequest(signed)
		req.ClientID = "free-form-identifier"
		req.StrictEORI = false
		_, err = assertion.ValidateClientAssertion(req)
		assert.NoError(t, err)
	})

	t.Run("assertion issued for a different party", func(t *testing.T) {
		// sub and iss are a consistent, valid EORI, but not the client_id
		other, err := testutil.NewAssertionBuilder("EU.EORI.NL000000000000009")
		require.NoError(t, err)
		signed, err := other.Sign(other.DefaultClaims(serverEORI), other.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidIssuerOrSubscriber)
	})

	t.Run("subject mismatch alone is enough", func(t *testing.T) {
		claims := builder.DefaultClaims(serverEORI)
		claims["sub"] = "EU.EORI.NL000000000000009"
		signed, err := builder.Sign(claims, builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidIssuerOrSubscriber)
	})

	t.Run("missing jti", func(t *testing.T) {
		claims := builder.DefaultClaims(serverEORI)
		delete(claims, "jti")
		signed, err := builder.Sign(claims, builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidTokenJTI)
	})

	t.Run("empty jti", func(t *testing.T) {
		claims := builder.DefaultClaims(serverEORI)
		claims["jti"] = ""
		signed, err := builder.Sign(claims, builder.DefaultHeaders())
		require.NoError(t, err)

		_, err = assertion.ValidateClientAssertion(validRequest(signed))
		assert.ErrorIs(t, err, assertion.ErrInvalidTokenJTI)
	})
}

func TestValidateClientAssertion_LifetimeWindow(t *testing.T) {
	builder := newBuilder(t)

	tests := []struct {
		name    string
		window  time.Duration
		wantErr error
	}{
		{name: "one second short", window: 29 * time.Second, wantErr: assertion.ErrTokenExpirationInvalid},
		{name: "one second long", window: 31 * time.Second, wantErr: assertion.ErrTokenExpirationInvalid},
		{name: "exactly thirty seconds", window: 30 * time.Second, wantErr: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			claims := builder.DefaultClaims(serverEORI)
			iat := time.Now().Truncate(time.Second)
			claims["iat"] = iat
			claims["exp"] = iat.Add(tt.window)
			signed, err := builder.Sign(claims, builder.DefaultHeaders())
			require.NoError(t, err)

			_, err = assertion.ValidateClientAssertion(validRequest(signed))
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
