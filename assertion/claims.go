// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

package assertion

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims is the verified payload of an accepted client assertion. The
// registered claims are exposed as fields, everything else the client put
// into the assertion is passed through unmodified in Extra.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JWTID     string
	Extra     map[string]interface{}
}

// GetExtraAsString returns the named pass-through claim as a string.
func (c *Claims) GetExtraAsString(claim string) (string, error) {
	value, exists := c.Extra[claim]
	if !exists {
		return "", fmt.Errorf("claim %s not available in the assertion", claim)
	}
	stringValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unable to assert claim %s type as string. Actual type: %T", claim, value)
	}
	return stringValue, nil
}

func claimsFromToken(token jwt.Token) *Claims {
	var audience []string
	if aud := token.Audience(); len(aud) > 0 {
		audience = append([]string(nil), aud...)
	}
	claims := &Claims{
		Subject:   token.Subject(),
		Issuer:    token.Issuer(),
		Audience:  audience,
		ExpiresAt: token.Expiration(),
		IssuedAt:  token.IssuedAt(),
		JWTID:     token.JwtID(),
	}
	if private := token.PrivateClaims(); len(private) > 0 {
		claims.Extra = make(map[string]interface{}, len(private))
		for k, v := range private {
			claims.Extra[k] = v
		}
	}
	return claims
}
