// Package testutil provides testing utilities for acs-harvest.
package testutil

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// DatasetPath is the path the mock serves, mirroring the ACS 5-year 2022 dataset.
const DatasetPath = "/data/2022/acs/acs5"

// MockResponse defines a canned response for one state.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

type mockScope struct {
	code  string
	name  string
	units int
}

// MockCensus is a configurable mock Census API server for testing.
//
// Data queries return one row per unit with a deterministic value per
// variable (see MockValue) followed by the geography columns the real API
// appends.
type MockCensus struct {
	server *httptest.Server
	mu     sync.RWMutex

	scopes    []mockScope
	responses map[string]MockResponse
	unknown   map[string]bool
	keepOrder string

	// Tracking
	RequestCount int
	LastQuery    string
	UserAgents   map[string]int
}

// NewMockCensus creates a new mock Census server with no scopes.
func NewMockCensus() *MockCensus {
	mock := &MockCensus{
		responses:  make(map[string]MockResponse),
		unknown:    make(map[string]bool),
		UserAgents: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.RawQuery
		mock.UserAgents[r.Header.Get("User-Agent")]++
		mock.mu.Unlock()

		if r.URL.Path != DatasetPath {
			http.NotFound(w, r)
			return
		}
		mock.handle(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCensus) URL() string {
	return m.server.URL
}

// BaseURL returns the dataset endpoint to configure a client with.
func (m *MockCensus) BaseURL() string {
	return m.server.URL + DatasetPath
}

// Close shuts down the mock server.
func (m *MockCensus) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCensus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = ""
	m.UserAgents = make(map[string]int)
}

// AddScope registers a state with the given number of geographic units.
// States are listed in registration order.
func (m *MockCensus) AddScope(code, name string, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, mockScope{code: code, name: name, units: units})
}

// SetResponse makes every data query for state return resp.
func (m *MockCensus) SetResponse(state string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[state] = resp
}

// SetUnknownVariable makes queries requesting code fail with 400, as the API
// does for variables the dataset does not have.
func (m *MockCensus) SetUnknownVariable(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unknown[code] = true
}

// SetReverseRowsExcept reverses row order for every data query whose first
// variable is not code, to exercise key-based joins. Empty code disables it.
func (m *MockCensus) SetReverseRowsExcept(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keepOrder = code
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCensus) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// MockValue is the value the mock returns for code at unit index i of a state.
func MockValue(code string, i int) string {
	h := fnv.New32a()
	h.Write([]byte(code))
	return fmt.Sprintf("%d", int(h.Sum32()%10000)+i)
}

// MockUnitName is the NAME the mock returns for unit index i of a state.
func MockUnitName(stateName string, i int) string {
	return fmt.Sprintf("Block Group %d, Census Tract %d, %s", i%4+1, 100+i/4, stateName)
}

func (m *MockCensus) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := strings.Split(q.Get("get"), ",")

	m.mu.RLock()
	scopes := append([]mockScope(nil), m.scopes...)
	keepOrder := m.keepOrder
	var unknown string
	for _, f := range fields {
		if m.unknown[f] {
			unknown = f
			break
		}
	}
	m.mu.RUnlock()

	if unknown != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "error: unknown variable '%s'", unknown)
		return
	}

	geography := strings.TrimSuffix(q.Get("for"), ":*")
	if geography == "state" {
		rows := [][]any{{"NAME", "state"}}
		for _, s := range scopes {
			rows = append(rows, []any{s.name, s.code})
		}
		writeJSON(w, rows)
		return
	}

	stateCode := ""
	for _, part := range strings.Fields(q.Get("in")) {
		if strings.HasPrefix(part, "state:") {
			stateCode = strings.TrimPrefix(part, "state:")
		}
	}

	m.mu.RLock()
	resp, canned := m.responses[stateCode]
	m.mu.RUnlock()
	if canned {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
		return
	}

	var scope *mockScope
	for i := range scopes {
		if scopes[i].code == stateCode {
			scope = &scopes[i]
		}
	}
	if scope == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	geoCols := geographyColumns(geography)
	if geoCols == nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "error: unknown/unsupported geography hierarchy")
		return
	}

	header := make([]any, 0, len(fields)+len(geoCols))
	for _, f := range fields {
		header = append(header, f)
	}
	for _, g := range geoCols {
		header = append(header, g)
	}

	rows := make([][]any, 0, scope.units)
	for i := 0; i < scope.units; i++ {
		row := make([]any, 0, len(header))
		for _, f := range fields {
			if f == "NAME" {
				row = append(row, MockUnitName(scope.name, i))
			} else {
				row = append(row, json.Number(MockValue(f, i)))
			}
		}
		row = append(row, geoValues(scope.code, len(geoCols), i)...)
		rows = append(rows, row)
	}

	if keepOrder != "" && len(fields) > 1 && fields[1] != keepOrder {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	writeJSON(w, append([][]any{header}, rows...))
}

func geographyColumns(geography string) []string {
	switch geography {
	case "block group":
		return []string{"state", "county", "tract", "block group"}
	case "tract":
		return []string{"state", "county", "tract"}
	case "county":
		return []string{"state", "county"}
	default:
		return nil
	}
}

func geoValues(state string, n, i int) []any {
	all := []any{
		state,
		fmt.Sprintf("%03d", 1+2*(i/8)),
		fmt.Sprintf("%06d", 20100+100*(i/4)),
		fmt.Sprintf("%d", i%4+1),
	}
	return all[:n]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
