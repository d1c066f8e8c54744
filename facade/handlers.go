package facade

import (
	"net/http"
	"strconv"

	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// networkStatus is NetworkStatus: a lightweight snapshot of chain tip and
// consensus parameters, cheap enough to poll.
type networkStatus struct {
	NetworkID          string `json:"networkId"`
	LatestHeight       uint64 `json:"latestHeight"`
	LatestHash         string `json:"latestHash"`
	GenesisHash        string `json:"genesisHash"`
	TotalTx            uint64 `json:"totalTx"`
	LastUpdatedMs      int64  `json:"lastUpdatedMs"`
	LastProposerError  string `json:"lastProposerError,omitempty"`
	ValidatorCount     int    `json:"validatorCount"`
	RequiredSignatures int    `json:"requiredSignatures"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.client.QueryState()
	cfg := s.client.Config()
	writeData(w, http.StatusOK, networkStatus{
		NetworkID:          cfg.NetworkID,
		LatestHeight:       state.LatestHeight,
		LatestHash:         state.LatestHash,
		GenesisHash:        state.GenesisHash,
		TotalTx:            state.TotalTx,
		LastUpdatedMs:      state.LastUpdatedMs,
		LastProposerError:  state.LastProposerError,
		ValidatorCount:     len(cfg.Validators),
		RequiredSignatures: cfg.RequiredSignatures,
	})
}

// submitTxBody is the wire shape of POST /tx/submit: everything but the
// hash, which the façade computes itself before verifying.
type submitTxBody struct {
	From        string      `json:"from"`
	To          string      `json:"to"`
	Amount      core.Amount `json:"amount"`
	Sequence    uint64      `json:"sequence"`
	TimestampMs int64       `json:"timestamp_ms"`
	PublicKey   string      `json:"publicKey"`
	Signature   string      `json:"signature"`
}

func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	var body submitTxBody
	if !readJSON(w, r, &body) {
		return
	}
	from, err := core.NormalizeAddress(body.From)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := core.NormalizeAddress(body.To)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	tx := core.NewTransaction(from, to, body.Amount, body.Sequence, body.TimestampMs)
	tx.PublicKey = body.PublicKey
	tx.Signature = body.Signature
	hash, err := tx.ComputeHash()
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	tx.Hash = hash
	if err := tx.Verify(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.client.AddTransaction(tx); err != nil {
		writeError(w, err)
		return
	}
	s.fireTrigger()
	cfg := s.client.Config()
	writeData(w, http.StatusOK, map[string]any{
		"txHash":                 tx.Hash,
		"estimatedConfirmationMs": cfg.ConsensusTimeoutMs,
	})
}

// fireTrigger wakes the proposer in a detached goroutine. The façade never
// waits on a round to answer a submission — it returns as soon as the
// transaction is admitted.
func (s *Server) fireTrigger() {
	if s.trigger == nil {
		return
	}
	go s.trigger()
}

func (s *Server) handleGetTx(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	tx, pending, err := s.client.QueryTransaction(hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"transaction": tx, "pending": pending})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := core.NormalizeAddress(r.PathValue("addr"))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, s.client.QueryAccount(addr))
}

func (s *Server) handleGetAccountTxs(w http.ResponseWriter, r *http.Request) {
	addr, err := core.NormalizeAddress(r.PathValue("addr"))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.client.GetTransactionsByAddress(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, txs)
}

// blockSummary is the lightweight shape GET /block/latest returns: header
// fields and counts, without the full transaction list.
type blockSummary struct {
	Height      uint64       `json:"height"`
	Hash        string       `json:"hash"`
	PrevHash    string       `json:"prevHash"`
	TimestampMs int64        `json:"timestamp_ms"`
	Proposer    core.Address `json:"proposer"`
	TxCount     int          `json:"txCount"`
	VoteCount   int          `json:"voteCount"`
}

func summarize(b *core.Block) blockSummary {
	return blockSummary{
		Height:      b.Header.Height,
		Hash:        b.Hash,
		PrevHash:    b.Header.PrevHash,
		TimestampMs: b.Header.TimestampMs,
		Proposer:    b.Header.Proposer,
		TxCount:     b.Header.TxCount,
		VoteCount:   len(b.Votes),
	}
}

func (s *Server) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.client.QueryLatestBlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, summarize(block))
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.PathValue("height"), 10, 64)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid height")
		return
	}
	block, err := s.client.QueryBlock(height)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, block)
}

// mainnetNetworkID is the one NetworkID value the faucet refuses to drip
// on; every other tag (devnet, testnet, a custom name) is treated as
// non-production.
const mainnetNetworkID = "mainnet"

type faucetBody struct {
	To     string       `json:"to"`
	Amount *core.Amount `json:"amount,omitempty"` // defaults to faucetDripAmount
}

// faucetDripAmount is the fixed amount /faucet credits per call when the
// request doesn't specify one.
var faucetDripAmount = core.AmountFromUint64(1_000_000_000_000_000_000)

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if s.faucet == nil {
		writeErrorStatus(w, http.StatusNotFound, "faucet not configured on this node")
		return
	}
	cfg := s.client.Config()
	if cfg.NetworkID == mainnetNetworkID {
		writeErrorStatus(w, http.StatusForbidden, "faucet is disabled on mainnet")
		return
	}
	var body faucetBody
	if !readJSON(w, r, &body) {
		return
	}
	to, err := core.NormalizeAddress(body.To)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	amount := faucetDripAmount
	if body.Amount != nil {
		amount = *body.Amount
	}
	view := s.client.QueryAccount(s.faucet.Address())
	tx, err := s.faucet.Transfer(to, amount, view.PendingSequence)
	if err != nil {
		writeErrorStatus(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.client.AddTransaction(tx); err != nil {
		writeError(w, err)
		return
	}
	s.fireTrigger()
	writeData(w, http.StatusOK, map[string]string{"txHash": tx.Hash})
}

type initGenesisBody struct {
	Genesis config.GenesisConfig `json:"genesis"`
	Force   bool                 `json:"force"`
}

func (s *Server) handleInitGenesis(w http.ResponseWriter, r *http.Request) {
	var body initGenesisBody
	if !readJSON(w, r, &body) {
		return
	}
	if err := s.client.InitGenesis(&body.Genesis, body.Force); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"ok": true})
}
