// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package server wires the assertion validator into an OAuth2 token endpoint.
package server

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/ishare-community/ishare-security-client-go/assertion"
	"github.com/ishare-community/ishare-security-client-go/env"
)

const defaultAccessTokenTTL = 1 * time.Hour

// PartyVerifier confirms that an authenticated client is an adherent scheme
// participant. See satellite.Client for the production implementation.
type PartyVerifier interface {
	VerifyParty(ctx context.Context, eori string) error
}

// Options can be used as an argument to instantiate a TokenEndpoint with
// NewTokenEndpoint.
type Options struct {
	PartyVerifier  PartyVerifier // Optional check of the client's adherence status after assertion validation. Default: skipped.
	AccessTokenTTL time.Duration // Lifetime of issued access tokens. Default: 1 hour.
	LogOutput      io.Writer     // Destination of the request log. Default: os.Stdout.
}

// TokenEndpoint validates client assertions and issues access tokens for the
// party described by the identity config.
type TokenEndpoint struct {
	identity *env.Identity
	options  Options
	signKey  *rsa.PrivateKey
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// NewTokenEndpoint instantiates a new TokenEndpoint with defaults for not
// provided Options. The identity must be certificate based, its key signs the
// issued access tokens.
func NewTokenEndpoint(identity *env.Identity, options Options) (*TokenEndpoint, error) {
	if identity == nil {
		log.Fatal("identity must not be nil, please refer to package env for default implementations")
	}
	signKey, err := identity.ParseKey()
	if err != nil {
		return nil, err
	}
	if options.AccessTokenTTL == 0 {
		options.AccessTokenTTL = defaultAccessTokenTTL
	}
	if options.LogOutput == nil {
		options.LogOutput = os.Stdout
	}
	return &TokenEndpoint{
		identity: identity,
		options:  options,
		signKey:  signKey,
	}, nil
}

// Handler returns the ready to use http handler serving POST /connect/token,
// wrapped in a combined-format request log.
func (e *TokenEndpoint) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/connect/token", e.ServeToken).Methods(http.MethodPost)
	return handlers.CombinedLoggingHandler(e.options.LogOutput, r)
}

// ServeToken handles one token request: it parses the posted form into an
// assertion request, runs the validation pipeline, optionally checks the
// client's adherence status and responds with a Bearer access token or the
// matching OAuth2 error.
func (e *TokenEndpoint) ServeToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse request form")
		return
	}

	req := assertion.Request{
		ClientID:            r.PostFormValue("client_id"),
		ClientAssertion:     r.PostFormValue("client_assertion"),
		Audience:            e.identity.EORI,
		GrantType:           r.PostFormValue("grant_type"),
		Scope:               r.PostFormValue("scope"),
		ClientAssertionType: r.PostFormValue("client_assertion_type"),
		StrictEORI:          e.identity.StrictEORI,
	}

	claims, err := assertion.ValidateClientAssertion(req)
	if err != nil {
		status, code := oauthError(err)
		writeError(w, status, code, err.Error())
		return
	}

	if e.options.PartyVerifier != nil {
		if err := e.options.PartyVerifier.VerifyParty(r.Context(), claims.Subject); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client", err.Error())
			return
		}
	}

	accessToken, err := e.mintAccessToken(claims.Subject)
	if err != nil {
		log.Printf("error minting access token for %s: %v", claims.Subject, err)
		writeError(w, http.StatusInternalServerError, "server_error", "could not issue access token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(e.options.AccessTokenTTL / time.Second),
		Scope:       assertion.ScopeIShare,
	})
}

func (e *TokenEndpoint) mintAccessToken(clientEORI string) (string, error) {
	now := time.Now().Truncate(time.Second)
	token, err := jwt.NewBuilder().
		Issuer(e.identity.EORI).
		Subject(clientEORI).
		Audience([]string{clientEORI}).
		IssuedAt(now).
		Expiration(now.Add(e.options.AccessTokenTTL)).
		JwtID(uuid.NewString()).
		Claim("scope", assertion.ScopeIShare).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, e.signKey))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// oauthError translates an assertion rejection into the RFC 6749 error code
// the client gets to see. Everything the RFC doesn't name specifically is an
// invalid_client.
func oauthError(err error) (int, string) {
	var vErr *assertion.Error
	if !errors.As(err, &vErr) {
		return http.StatusInternalServerError, "server_error"
	}
	switch vErr.Kind {
	case assertion.KindInvalidGrantType:
		return http.StatusBadRequest, "unsupported_grant_type"
	case assertion.KindInvalidScope:
		return http.StatusBadRequest, "invalid_scope"
	case assertion.KindInvalidClientAssertionType:
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusBadRequest, "invalid_client"
	}
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: code, ErrorDescription: description})
}
