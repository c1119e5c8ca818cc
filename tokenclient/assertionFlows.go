// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0
package tokenclient

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/cert"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/ishare-community/ishare-security-client-go/assertion"
	"github.com/ishare-community/ishare-security-client-go/env"
	"github.com/ishare-community/ishare-security-client-go/httpclient"
)

// Options allows configuration of the http(s) client
type Options struct {
	HTTPClient *http.Client // Default: basic http.Client with a timeout of 10 seconds. It uses the given TLSConfig.
	TLSConfig  *tls.Config  // In case of cert-based identity config. Default: SystemCertPool with cert/key from identity config.
}

// RequestOptions allows to configure the token request
type RequestOptions struct {
	// Request parameters that shall be overwritten or added to the payload
	Params map[string]string
}

// AssertionFlows builds signed client assertions for this party and performs
// the iSHARE client credentials flow with them. Setup once per application.
type AssertionFlows struct {
	identity *env.Identity
	options  Options
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

const (
	grantTypeParameter           = "grant_type"
	scopeParameter               = "scope"
	clientIDParameter            = "client_id"
	clientAssertionTypeParameter = "client_assertion_type"
	clientAssertionParameter     = "client_assertion"
)

// NewAssertionFlows initializes assertion flows
//
// identity provides the party's EORI plus the certificate chain and key used
// to sign assertions. options specifies the rest client and its tls config,
// both can be overwritten.
func NewAssertionFlows(identity *env.Identity, options Options) (*AssertionFlows, error) {
	f := new(AssertionFlows)
	f.identity = identity
	if options.HTTPClient == nil {
		if options.TLSConfig == nil && identity.IsCertificateBased() {
			defaultConfig, err := httpclient.DefaultTLSConfig(identity)
			if err != nil {
				return nil, err
			}
			options.TLSConfig = defaultConfig
		}
		options.HTTPClient = httpclient.DefaultHTTPClient(options.TLSConfig)
	}
	f.options = options
	return f, nil
}

// NewClientAssertion signs a fresh client assertion addressed to the party
// identified by audience: RS256, typ JWT, the identity's certificate chain in
// x5c, iss and sub set to the own EORI, a uuid jti and the scheme's exact
// 30 second validity window.
func (f *AssertionFlows) NewClientAssertion(audience string) (string, error) {
	certs, err := f.identity.ParseCertificates()
	if err != nil {
		return "", err
	}
	key, err := f.identity.ParseKey()
	if err != nil {
		return "", err
	}

	chain := &cert.Chain{}
	for _, c := range certs {
		if err := chain.Add([]byte(base64.StdEncoding.EncodeToString(c.Raw))); err != nil {
			return "", fmt.Errorf("error building x5c chain: %w", err)
		}
	}
	headers := jws.NewHeaders()
	if err := headers.Set(jws.TypeKey, "JWT"); err != nil {
		return "", err
	}
	if err := headers.Set(jws.X509CertChainKey, chain); err != nil {
		return "", err
	}

	now := time.Now().Truncate(time.Second)
	token, err := jwt.NewBuilder().
		Issuer(f.identity.EORI).
		Subject(f.identity.EORI).
		Audience([]string{audience}).
		IssuedAt(now).
		Expiration(now.Add(assertion.AssertionLifetime)).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", fmt.Errorf("error building client assertion: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", fmt.Errorf("error signing client assertion: %w", err)
	}
	return string(signed), nil
}

// ClientCredentials implements the client credentials flow (RFC 6749, section
// 4.4) the iSHARE way: the client authenticates with a signed assertion
// instead of a shared secret.
//
// tokenURL is the counterparty's token endpoint, serverEORI its scheme
// identifier which becomes the assertion's audience. options allows to
// provide additional request parameters.
func (f *AssertionFlows) ClientCredentials(ctx context.Context, tokenURL, serverEORI string, options RequestOptions) (string, error) {
	clientAssertion, err := f.NewClientAssertion(serverEORI)
	if err != nil {
		return "", err
	}

	data := url.Values{}
	data.Set(grantTypeParameter, assertion.GrantTypeClientCredentials)
	data.Set(scopeParameter, assertion.ScopeIShare)
	data.Set(clientIDParameter, f.identity.EORI)
	data.Set(clientAssertionTypeParameter, assertion.ClientAssertionTypeJWTBearer)
	data.Set(clientAssertionParameter, clientAssertion)
	for name, value := range options.Params {
		data.Set(name, value) // potentially overwrites data which was set before
	}

	r, err := httpclient.NewRequestWithUserAgent(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("error performing client credentials flow: %w", err)
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	tokenJSON, err := f.performRequest(r)
	if err != nil {
		return "", err
	}
	var response tokenResponse
	if err := json.Unmarshal(tokenJSON, &response); err != nil {
		return "", fmt.Errorf("error parsing token response: %w", err)
	}
	if response.AccessToken == "" {
		return "", fmt.Errorf("token response from '%v' contains no access_token", tokenURL)
	}
	return response.AccessToken, nil
}

func (f *AssertionFlows) performRequest(r *http.Request) ([]byte, error) {
	res, err := f.options.HTTPClient.Do(r)
	if err != nil {
		return nil, fmt.Errorf("request to '%v' failed: %w", r.URL, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to '%v' failed with status code '%v' and payload: '%v'", r.URL, res.StatusCode, string(body))
	}
	if err != nil || !json.Valid(body) {
		return nil, fmt.Errorf("request to '%v' provides no valid json content: %w", r.URL, err)
	}
	return body, nil
}
