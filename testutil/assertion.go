// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides helpers to build signed client assertions and a
// mock scheme satellite. !!! WARNING !!! Use only in tests!
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/cert"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// AssertionBuilder signs client assertions for a made-up party with a fresh
// RSA key and a self-signed certificate.
type AssertionBuilder struct {
	EORI        string
	Key         *rsa.PrivateKey
	Certificate *x509.Certificate
}

// NewAssertionBuilder generates key and certificate for the party identified
// by eori.
func NewAssertionBuilder(eori string) (*AssertionBuilder, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("unable to create assertion builder: error generating rsa key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("unable to create assertion builder: error generating serial: %w", err)
	}
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   eori,
			Organization: []string{"iSHARE Test Party"},
		},
		NotBefore: time.Now().Add(-1 * time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("unable to create assertion builder: error creating certificate: %w", err)
	}
	x509Cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("unable to create assertion builder: error parsing certificate: %w", err)
	}

	return &AssertionBuilder{
		EORI:        eori,
		Key:         key,
		Certificate: x509Cert,
	}, nil
}

// CertChainBase64 returns the builder's certificate as a one-entry x5c chain.
func (b *AssertionBuilder) CertChainBase64() []string {
	return []string{base64.StdEncoding.EncodeToString(b.Certificate.Raw)}
}

// CertificatePEM returns the builder's certificate PEM encoded.
func (b *AssertionBuilder) CertificatePEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: b.Certificate.Raw}))
}

// KeyPEM returns the builder's private key PEM encoded in PKCS#1 form.
func (b *AssertionBuilder) KeyPEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(b.Key)}))
}

// DefaultClaims returns claims for a currently valid assertion addressed to
// audience, with the scheme's exact 30 second window and a fresh jti.
func (b *AssertionBuilder) DefaultClaims(audience string) map[string]interface{} {
	now := time.Now().Truncate(time.Second)
	return map[string]interface{}{
		"iss": b.EORI,
		"sub": b.EORI,
		"aud": audience,
		"jti": uuid.NewString(),
		"iat": now,
		"exp": now.Add(30 * time.Second),
	}
}

// DefaultHeaders returns JWT headers with the builder's certificate in x5c.
func (b *AssertionBuilder) DefaultHeaders() map[string]interface{} {
	return map[string]interface{}{
		"typ": "JWT",
		"x5c": b.CertChainBase64(),
	}
}

// Sign signs the provided claims and header fields into a compact RS256
// assertion with the builder's key.
func (b *AssertionBuilder) Sign(claims, headers map[string]interface{}) (string, error) {
	return b.SignWithKey(jwa.RS256, b.Key, claims, headers)
}

// SignWithKey signs with an arbitrary algorithm and key, for tests that need
// assertions a validator must turn away.
func (b *AssertionBuilder) SignWithKey(alg jwa.SignatureAlgorithm, key interface{}, claims, headers map[string]interface{}) (string, error) {
	token := jwt.New()
	for name, value := range claims {
		if err := token.Set(name, value); err != nil {
			return "", fmt.Errorf("error setting claim %s: %w", name, err)
		}
	}

	jwsHeaders := jws.NewHeaders()
	for name, value := range headers {
		if entries, ok := value.([]string); ok && name == jws.X509CertChainKey {
			chain := &cert.Chain{}
			for _, entry := range entries {
				if err := chain.Add([]byte(entry)); err != nil {
					return "", fmt.Errorf("error building x5c chain: %w", err)
				}
			}
			value = chain
		}
		if err := jwsHeaders.Set(name, value); err != nil {
			return "", fmt.Errorf("error setting header %s: %w", name, err)
		}
	}

	signed, err := jwt.Sign(token, jwt.WithKey(alg, key, jws.WithProtectedHeaders(jwsHeaders)))
	if err != nil {
		return "", fmt.Errorf("error signing assertion: %w", err)
	}
	return string(signed), nil
}
