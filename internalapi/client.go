package internalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/coordinator"
)

// HTTPClient satisfies Client by calling a coordinator.Server's internal
// routes over plain HTTP/JSON. Used when the Proposer/Validator run as
// separate processes from the coordinator.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

// NewHTTPClient builds a client against a coordinator internal API
// listening at baseURL (e.g. "http://127.0.0.1:9090").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HTTPClient) post(path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	resp, err := h.hc.Post(h.baseURL+path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, respBody)
}

func (h *HTTPClient) get(path string, query url.Values, respBody any) error {
	u := h.baseURL + path
	if query != nil {
		u += "?" + query.Encode()
	}
	resp, err := h.hc.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, respBody)
}

func decodeResponse(resp *http.Response, respBody any) error {
	if resp.StatusCode >= 400 {
		var e struct {
			Kind  string `json:"kind"`
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return fmt.Errorf("internalapi: status %d", resp.StatusCode)
		}
		return core.NewError(core.Kind(e.Kind), "%s", e.Error)
	}
	if respBody == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

func (h *HTTPClient) AddTransaction(tx *core.Transaction) error {
	return h.post("/internal/addTransaction", tx, nil)
}

func (h *HTTPClient) AcquireProcessingLock() ([]*core.Transaction, error) {
	var txs []*core.Transaction
	err := h.post("/internal/acquireProcessingLock", nil, &txs)
	return txs, err
}

func (h *HTTPClient) ReleaseProcessingLock(clearQueue bool) error {
	return h.post("/internal/releaseProcessingLock", map[string]bool{"clearQueue": clearQueue}, nil)
}

func (h *HTTPClient) PackBlock(proposerID core.Address) (*core.Block, error) {
	var block core.Block
	err := h.post("/internal/packBlock", map[string]core.Address{"proposerId": proposerID}, &block)
	return &block, err
}

func (h *HTTPClient) CommitBlock(block *core.Block, votes []core.Vote) (*coordinator.CommitSummary, error) {
	var summary coordinator.CommitSummary
	body := struct {
		Block *core.Block `json:"block"`
		Votes []core.Vote `json:"votes"`
	}{block, votes}
	err := h.post("/internal/commitBlock", body, &summary)
	return &summary, err
}

func (h *HTTPClient) Config() core.ConsensusConfig {
	var cfg core.ConsensusConfig
	_ = h.get("/internal/config", nil, &cfg)
	return cfg
}

func (h *HTTPClient) QueryState() *core.WorldState {
	var state core.WorldState
	_ = h.get("/internal/queryState", nil, &state)
	return &state
}

func (h *HTTPClient) QueryAccount(addr core.Address) coordinator.AccountView {
	var v coordinator.AccountView
	_ = h.get("/internal/queryAccount", url.Values{"addr": {string(addr)}}, &v)
	return v
}

func (h *HTTPClient) QueryBlock(height uint64) (*core.Block, error) {
	var block core.Block
	err := h.get("/internal/queryBlock", url.Values{"height": {strconv.FormatUint(height, 10)}}, &block)
	return &block, err
}

func (h *HTTPClient) QueryBlocksRange(start uint64, limit int) ([]*core.Block, error) {
	var blocks []*core.Block
	q := url.Values{"start": {strconv.FormatUint(start, 10)}, "limit": {strconv.Itoa(limit)}}
	err := h.get("/internal/queryBlocksRange", q, &blocks)
	return blocks, err
}

func (h *HTTPClient) QueryLatestBlock() (*core.Block, error) {
	var block core.Block
	err := h.get("/internal/queryLatestBlock", nil, &block)
	return &block, err
}

func (h *HTTPClient) QueryTransaction(hash string) (*core.Transaction, bool, error) {
	var out struct {
		Transaction *core.Transaction `json:"transaction"`
		Pending     bool              `json:"pending"`
	}
	err := h.get("/internal/queryTransaction", url.Values{"hash": {hash}}, &out)
	return out.Transaction, out.Pending, err
}

func (h *HTTPClient) GetTransactionsByAddress(addr core.Address) ([]*core.Transaction, error) {
	var txs []*core.Transaction
	err := h.get("/internal/txsByAddress", url.Values{"addr": {string(addr)}}, &txs)
	return txs, err
}

func (h *HTTPClient) InitGenesis(gcfg *config.GenesisConfig, force bool) error {
	body := struct {
		Genesis *config.GenesisConfig `json:"genesis"`
		Force   bool                  `json:"force"`
	}{gcfg, force}
	return h.post("/internal/initGenesis", body, nil)
}

func (h *HTTPClient) ReportError(msg string) error {
	return h.post("/internal/reportError", map[string]string{"message": msg}, nil)
}

func (h *HTTPClient) TriggerBackup(ctx context.Context) (string, error) {
	var out struct {
		Cid string `json:"cid"`
	}
	err := h.post("/internal/triggerBackup", nil, &out)
	return out.Cid, err
}

func (h *HTTPClient) Restore(ctx context.Context, req backup.RestoreRequest) error {
	body := struct {
		State *core.WorldState `json:"state"`
		Cid   string           `json:"cid"`
		Force bool             `json:"force"`
	}{req.State, req.Cid, req.Force}
	return h.post("/internal/restore", body, nil)
}
