package proposerapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient calls a remote proposer's /trigger endpoint.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient builds a client for a proposer listening at baseURL.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{baseURL: baseURL, hc: hc}
}

func (h *HTTPClient) Trigger() (*TriggerResponse, error) {
	resp, err := h.hc.Post(h.baseURL+"/trigger", "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proposerapi: status %d", resp.StatusCode)
	}
	var out TriggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
