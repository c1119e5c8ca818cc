// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0
package assertion

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/cert"
)

// DecodeCertificates parses a list of base64 encoded DER certificates, as
// carried in a JWS x5c header, leaf first. No trust chain or revocation
// checks are performed here; the certificates are only used as signature
// verification material.
func DecodeCertificates(entries []string) ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(entries))
	for i, entry := range entries {
		der, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, fmt.Errorf("cannot base64 decode x5c entry %d: %w", i, err)
		}
		x509Cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("cannot parse x5c entry %d: %w", i, err)
		}
		certs = append(certs, x509Cert)
	}
	return certs, nil
}

func decodeCertChain(chain *cert.Chain) ([]*x509.Certificate, error) {
	entries := make([]string, 0, chain.Len())
	for i := 0; i < chain.Len(); i++ {
		entry, _ := chain.Get(i)
		entries = append(entries, string(entry))
	}
	return DecodeCertificates(entries)
}
