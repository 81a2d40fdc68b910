// Package e2e drives black-box scenarios against a running ledger instance.
// Point PROBO_BASE_URL at the server under test; the suite skips when it is
// unset so unit runs stay hermetic.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext carries HTTP state across steps of one scenario.
type TestContext struct {
	baseURL string
	client  *http.Client

	lastStatus int
	lastBody   map[string]interface{}

	footprintID string
	coinID      string
}

// NewTestContext builds a context targeting the given base URL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state. Called before each scenario.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.footprintID = ""
	tc.coinID = ""
}

// POST sends a JSON body and captures the response.
func (tc *TestContext) POST(path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	resp, err := tc.client.Post(tc.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return tc.capture(resp)
}

// GET fetches a path and captures the response.
func (tc *TestContext) GET(path string) error {
	resp, err := tc.client.Get(tc.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return tc.capture(resp)
}

func (tc *TestContext) capture(resp *http.Response) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tc.lastBody); err != nil {
			return fmt.Errorf("decode response body %q: %w", raw, err)
		}
	}
	return nil
}

// LastStatus returns the status code of the most recent response.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// GetResponseField looks up a top-level field in the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no response body captured")
	}
	v, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response %v", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) GetFootprintID() string   { return tc.footprintID }
func (tc *TestContext) SetFootprintID(id string) { tc.footprintID = id }
func (tc *TestContext) GetCoinID() string        { return tc.coinID }
func (tc *TestContext) SetCoinID(id string)      { tc.coinID = id }
