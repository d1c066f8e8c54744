package validatorapi

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient calls one validator's /validate endpoint.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient builds a client for a validator listening at baseURL.
// A non-nil hc is used as is, and tlsConfig is then not consulted. A nil
// hc is replaced by a client with a 30-second timeout that dials over
// mTLS when tlsConfig is non-nil, matching a ValidatorServer configured
// the same way.
func NewHTTPClient(baseURL string, hc *http.Client, tlsConfig *tls.Config) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
		if tlsConfig != nil {
			hc.Transport = &http.Transport{TLSClientConfig: tlsConfig}
		}
	}
	return &HTTPClient{baseURL: baseURL, hc: hc}
}

func (h *HTTPClient) Validate(req ValidateRequest) (*ValidateResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := h.hc.Post(h.baseURL+"/validate", "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validatorapi: status %d", resp.StatusCode)
	}
	var out ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
