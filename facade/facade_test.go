package facade

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/coordinator"
	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/internal/testutil"
	"github.com/tolelom/quorumchain/internalapi"
	"github.com/tolelom/quorumchain/wallet"
)

func startFacade(t *testing.T, faucet *wallet.Wallet, authToken string) (string, *wallet.Wallet) {
	t.Helper()
	history := core.NewBlockHistory(testutil.NewMemBlockStore())
	stateStore := testutil.NewStateStore()
	c, err := coordinator.New(coordinator.Options{History: history, StateStore: stateStore})
	if err != nil {
		t.Fatalf("coordinator.New: %v", err)
	}

	premine, err := wallet.Generate()
	if err != nil {
		t.Fatalf("wallet.Generate: %v", err)
	}
	_, proposerPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	_, validatorPub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	gcfg := config.DefaultGenesisConfig()
	gcfg.ProposerPublicKey = proposerPub.Hex()
	gcfg.Validators = []config.ValidatorInfo{{ID: "v0", PublicKey: validatorPub.Hex()}}
	gcfg.Premine = []config.PremineEntry{{Address: premine.Address(), Amount: core.AmountFromUint64(1_000_000_000_000_000_000)}}
	if faucet != nil {
		gcfg.Premine = append(gcfg.Premine, config.PremineEntry{Address: faucet.Address(), Amount: faucetDripAmount})
	}
	if err := c.InitGenesis(gcfg, false); err != nil {
		t.Fatalf("InitGenesis: %v", err)
	}

	client := internalapi.NewInProcess(c)
	s := NewServer("127.0.0.1:0", client, faucet, authToken, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return "http://" + s.Addr(), premine
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func postJSON(t *testing.T, url string, payload any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthEndpoint(t *testing.T) {
	base, _ := startFacade(t, nil, "")
	status, body := getJSON(t, base+"/health")
	if status != http.StatusOK {
		t.Fatalf("status: got %d, want 200", status)
	}
	if body["success"] != true {
		t.Fatalf("expected success=true, got %v", body)
	}
}

func TestStatusEndpointReportsGenesis(t *testing.T) {
	base, _ := startFacade(t, nil, "")
	status, body := getJSON(t, base+"/status")
	if status != http.StatusOK {
		t.Fatalf("status: got %d, want 200", status)
	}
	data := body["data"].(map[string]any)
	if data["latestHeight"].(float64) != 0 {
		t.Fatalf("latestHeight: got %v, want 0", data["latestHeight"])
	}
}

func TestSubmitTxAdmitsValidTransfer(t *testing.T) {
	base, premine := startFacade(t, nil, "")
	tx, err := premine.Transfer(core.Address("0xaaaa000000000000000000000000000000aaaa"), core.AmountFromUint64(5), 0)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	status, body := postJSON(t, base+"/tx/submit", submitTxBody{
		From: string(tx.From), To: string(tx.To), Amount: tx.Amount,
		Sequence: tx.Sequence, TimestampMs: tx.TimestampMs,
		PublicKey: tx.PublicKey, Signature: tx.Signature,
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("status: got %d body %v", status, body)
	}
	data := body["data"].(map[string]any)
	if data["txHash"] != tx.Hash {
		t.Fatalf("txHash: got %v, want %s", data["txHash"], tx.Hash)
	}
}

func TestSubmitTxRejectsBadSignature(t *testing.T) {
	base, premine := startFacade(t, nil, "")
	tx, err := premine.Transfer(core.Address("0xaaaa000000000000000000000000000000aaaa"), core.AmountFromUint64(5), 1)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	status, body := postJSON(t, base+"/tx/submit", submitTxBody{
		From: string(tx.From), To: string(tx.To), Amount: core.AmountFromUint64(999), // tampered amount
		Sequence: tx.Sequence, TimestampMs: tx.TimestampMs,
		PublicKey: tx.PublicKey, Signature: tx.Signature,
	}, nil)
	if status == http.StatusOK {
		t.Fatalf("expected a rejection for a tampered amount, got 200: %v", body)
	}
	if body["success"] == true {
		t.Fatal("expected success=false on a verification failure")
	}
}

func TestFaucetDisabledWithoutWallet(t *testing.T) {
	base, _ := startFacade(t, nil, "")
	status, _ := postJSON(t, base+"/faucet", faucetBody{To: "0xaaaa000000000000000000000000000000aaaa"}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", status)
	}
}

func TestFaucetCreditsAccountOnDevnet(t *testing.T) {
	faucetWallet, err := wallet.Generate()
	if err != nil {
		t.Fatalf("wallet.Generate: %v", err)
	}
	base, _ := startFacade(t, faucetWallet, "")

	to := core.Address("0xaaaa000000000000000000000000000000aaaa")
	status, body := postJSON(t, base+"/faucet", faucetBody{To: string(to)}, nil)
	if status != http.StatusOK {
		t.Fatalf("status: got %d body %v", status, body)
	}
}

func TestFaucetRequiresAuthWhenTokenConfigured(t *testing.T) {
	faucetWallet, err := wallet.Generate()
	if err != nil {
		t.Fatalf("wallet.Generate: %v", err)
	}
	base, _ := startFacade(t, faucetWallet, "secret-token")

	to := core.Address("0xaaaa000000000000000000000000000000aaaa")
	status, _ := postJSON(t, base+"/faucet", faucetBody{To: string(to)}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status without token: got %d, want 401", status)
	}

	status, body := postJSON(t, base+"/faucet", faucetBody{To: string(to)}, map[string]string{"Authorization": "Bearer secret-token"})
	if status != http.StatusOK {
		t.Fatalf("status with token: got %d body %v", status, body)
	}
}

func TestGetAccountReturnsZeroBalanceForUnknownAddress(t *testing.T) {
	base, _ := startFacade(t, nil, "")
	status, body := getJSON(t, base+"/account/0xaaaa000000000000000000000000000000aaaa")
	if status != http.StatusOK {
		t.Fatalf("status: got %d, want 200", status)
	}
	data := body["data"].(map[string]any)
	if data["Balance"] != "0" {
		t.Fatalf("balance: got %v, want \"0\"", data["Balance"])
	}
}

func TestGetAccountRejectsMalformedAddress(t *testing.T) {
	base, _ := startFacade(t, nil, "")
	status, _ := getJSON(t, base+"/account/not-an-address")
	if status != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", status)
	}
}

func TestLatestBlockReturnsGenesis(t *testing.T) {
	base, _ := startFacade(t, nil, "")
	status, body := getJSON(t, base+"/block/latest")
	if status != http.StatusOK {
		t.Fatalf("status: got %d, want 200", status)
	}
	data := body["data"].(map[string]any)
	if data["height"].(float64) != 0 {
		t.Fatalf("height: got %v, want 0", data["height"])
	}
}
