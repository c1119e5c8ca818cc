// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package satellite queries the scheme satellite (the iSHARE trusted list)
// for participant adherence. A token endpoint uses it to confirm that an
// authenticated client is still an active scheme participant before issuing
// an access token.
package satellite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pquerna/cachecontrol"
	"golang.org/x/sync/singleflight"

	"github.com/ishare-community/ishare-security-client-go/httpclient"
)

const (
	adherenceStatusActive = "Active"

	// If the satellite doesn't provide cache control headers, assume the
	// party info expires in 15min.
	defaultPartyTTL      = 15 * time.Minute
	cacheCleanupInterval = 1 * time.Hour
)

// Adherence describes a party's standing within the scheme.
type Adherence struct {
	Status    string     `json:"status"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// PartyInfo is the satellite's record for a single participant.
type PartyInfo struct {
	PartyID   string    `json:"party_id"`
	PartyName string    `json:"party_name"`
	Adherence Adherence `json:"adherence"`
}

// Client looks up parties on one satellite and caches the answers per EORI,
// honoring the satellite's cache control headers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	parties    *cache.Cache // contains *PartyInfo, keyed by EORI
	sf         singleflight.Group
}

// NewClient instantiates a satellite client. httpClient is expected to carry
// the TLS setup of the calling party, see httpclient.DefaultTLSConfig.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		parties:    cache.New(defaultPartyTTL, cacheCleanupInterval),
	}
}

// PartyInfo returns the satellite's record for the party identified by eori,
// either cached or freshly fetched. Concurrent lookups for the same party are
// collapsed into a single request.
func (c *Client) PartyInfo(ctx context.Context, eori string) (*PartyInfo, error) {
	if cached, found := c.parties.Get(eori); found {
		return cached.(*PartyInfo), nil
	}

	fetched, err, _ := c.sf.Do(eori, func() (interface{}, error) {
		return c.fetchParty(ctx, eori)
	})
	if err != nil {
		return nil, err
	}
	return fetched.(*PartyInfo), nil
}

// VerifyParty returns an error unless the party is an active adherent of the
// scheme at the time of the call.
func (c *Client) VerifyParty(ctx context.Context, eori string) error {
	info, err := c.PartyInfo(ctx, eori)
	if err != nil {
		return err
	}

	if info.Adherence.Status != adherenceStatusActive {
		return fmt.Errorf("party %s is not an active scheme participant, status: %s", eori, info.Adherence.Status)
	}
	now := time.Now()
	if now.Before(info.Adherence.StartDate) {
		return fmt.Errorf("party %s adherence starts only at %s", eori, info.Adherence.StartDate)
	}
	if info.Adherence.EndDate != nil && now.After(*info.Adherence.EndDate) {
		return fmt.Errorf("party %s adherence ended at %s", eori, info.Adherence.EndDate)
	}
	return nil
}

// ClearCache drops all cached party records.
func (c *Client) ClearCache() {
	c.parties.Flush()
}

func (c *Client) fetchParty(ctx context.Context, eori string) (*PartyInfo, error) {
	partyURL := fmt.Sprintf("%s/parties/%s", c.baseURL, url.PathEscape(eori))
	req, err := httpclient.NewRequestWithUserAgent(ctx, http.MethodGet, partyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("can't create request to fetch party info: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch party info from satellite: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read party info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch party info for %s: %s %s", eori, resp.Status, body)
	}

	info := new(PartyInfo)
	if err := json.Unmarshal(body, info); err != nil {
		return nil, fmt.Errorf("failed to decode party info: %v %s", err, body)
	}

	ttl := defaultPartyTTL
	_, expiry, err := cachecontrol.CachableResponse(req, resp, cachecontrol.Options{})
	if err == nil && expiry.After(time.Now()) {
		ttl = time.Until(expiry)
	}
	c.parties.Set(eori, info, ttl)

	return info, nil
}
