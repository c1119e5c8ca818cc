// SPDX-FileCopyrightText: 2026 iSHARE Security Client Go contributors
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"

	"github.com/ishare-community/ishare-security-client-go/satellite"
)

// MockSatellite serves party info for tests. Requests to the MockSatellite
// must be done by its client: MockSatellite.Server.Client()
type MockSatellite struct {
	Server            *httptest.Server // Server holds the httptest.Server and its Client.
	PartiesHitCounter int              // PartiesHitCounter holds the number of requests to the PartiesHandler.
	CacheControl      string           // CacheControl is sent verbatim with every party response when set.

	parties map[string]satellite.PartyInfo
}

// NewMockSatellite instantiates a new MockSatellite with no registered parties.
func NewMockSatellite() *MockSatellite {
	m := &MockSatellite{
		parties: make(map[string]satellite.PartyInfo),
	}
	r := mux.NewRouter()
	r.HandleFunc("/parties/{eori}", m.PartiesHandler).Methods("GET")
	m.Server = httptest.NewServer(r)
	return m
}

// RegisterParty makes the satellite answer lookups for info.PartyID.
func (m *MockSatellite) RegisterParty(info satellite.PartyInfo) {
	m.parties[info.PartyID] = info
}

// PartiesHandler is the http handler which answers requests to the mock
// satellite's party endpoint.
func (m *MockSatellite) PartiesHandler(w http.ResponseWriter, r *http.Request) {
	m.PartiesHitCounter++
	info, ok := m.parties[mux.Vars(r)["eori"]]
	if !ok {
		http.Error(w, "party not found", http.StatusNotFound)
		return
	}
	if m.CacheControl != "" {
		w.Header().Set("Cache-Control", m.CacheControl)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

// Close shuts the underlying test server down.
func (m *MockSatellite) Close() {
	m.Server.Close()
}
