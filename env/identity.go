// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package env loads the iSHARE identity configuration of the running party.
package env

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ishare-community/ishare-security-client-go/assertion"
)

// Identity holds the scheme identity of this party: its EORI, the certificate
// chain and key it signs with, and where its satellite lives.
type Identity struct {
	EORI         string `yaml:"eori"`
	Certificate  string `yaml:"certificate"` // PEM encoded certificate chain, leaf first
	Key          string `yaml:"key"`         // PEM encoded RSA private key
	SatelliteURL string `yaml:"satellite_url"`
	SatelliteID  string `yaml:"satellite_id"` // EORI of the scheme satellite
	TokenURL     string `yaml:"token_url"`
	StrictEORI   bool   `yaml:"strict_eori"`
}

// LoadIdentity reads and validates an identity configuration from a YAML file.
func LoadIdentity(path string) (*Identity, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read identity config %s: %w", path, err)
	}
	identity := new(Identity)
	if err := yaml.Unmarshal(content, identity); err != nil {
		return nil, fmt.Errorf("unable to parse identity config %s: %w", path, err)
	}
	if err := identity.Validate(); err != nil {
		return nil, fmt.Errorf("invalid identity config %s: %w", path, err)
	}
	return identity, nil
}

// IdentityFromEnv builds and validates an identity from ISHARE_* environment
// variables. Certificate and key are expected as PEM values, not file paths.
func IdentityFromEnv() (*Identity, error) {
	identity := &Identity{
		EORI:         os.Getenv("ISHARE_EORI"),
		Certificate:  os.Getenv("ISHARE_CERTIFICATE"),
		Key:          os.Getenv("ISHARE_KEY"),
		SatelliteURL: os.Getenv("ISHARE_SATELLITE_URL"),
		SatelliteID:  os.Getenv("ISHARE_SATELLITE_ID"),
		TokenURL:     os.Getenv("ISHARE_TOKEN_URL"),
		StrictEORI:   os.Getenv("ISHARE_STRICT_EORI") == "true",
	}
	if err := identity.Validate(); err != nil {
		return nil, fmt.Errorf("invalid identity environment: %w", err)
	}
	return identity, nil
}

// Validate checks the identity for the mistakes that would otherwise surface
// much later, on the first signed request.
func (i *Identity) Validate() error {
	if !assertion.IsValidEORI(i.EORI, i.StrictEORI) {
		return fmt.Errorf("eori %q is not a valid iSHARE identifier", i.EORI)
	}
	if i.SatelliteID != "" && !assertion.IsValidEORI(i.SatelliteID, i.StrictEORI) {
		return fmt.Errorf("satellite_id %q is not a valid iSHARE identifier", i.SatelliteID)
	}
	if i.IsCertificateBased() {
		if _, err := i.ParseCertificates(); err != nil {
			return err
		}
		if _, err := i.ParseKey(); err != nil {
			return err
		}
	}
	return nil
}

// IsCertificateBased returns true when the identity carries certificate and key.
func (i *Identity) IsCertificateBased() bool {
	return i.Certificate != "" && i.Key != ""
}

// ParseCertificates parses the identity's PEM certificate chain, leaf first.
func (i *Identity) ParseCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := []byte(i.Certificate)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse identity certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("identity certificate contains no PEM certificate blocks")
	}
	return certs, nil
}

// ParseKey parses the identity's PEM encoded RSA private key, in either
// PKCS#1 or PKCS#8 form.
func (i *Identity) ParseKey() (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(i.Key))
	if block == nil {
		return nil, errors.New("identity key contains no PEM block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unable to parse identity key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("identity key is not an RSA key, got %T", parsed)
	}
	return rsaKey, nil
}
