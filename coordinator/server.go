package coordinator

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/core"
)

// Server exposes the coordinator's internal API over plain HTTP/JSON,
// one route per operation. Mechanics (timeouts, body-size cap, graceful
// shutdown) follow the façade's own HTTP server construction.
type Server struct {
	c    *Coordinator
	addr string
	srv  *http.Server
	ln   net.Listener
}

// NewServer builds an internal-API HTTP server bound to addr.
func NewServer(c *Coordinator, addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{c: c, addr: addr}
	mux.HandleFunc("/internal/addTransaction", s.handleAddTransaction)
	mux.HandleFunc("/internal/acquireProcessingLock", s.handleAcquireLock)
	mux.HandleFunc("/internal/releaseProcessingLock", s.handleReleaseLock)
	mux.HandleFunc("/internal/packBlock", s.handlePackBlock)
	mux.HandleFunc("/internal/commitBlock", s.handleCommitBlock)
	mux.HandleFunc("/internal/config", s.handleConfig)
	mux.HandleFunc("/internal/queryState", s.handleQueryState)
	mux.HandleFunc("/internal/queryAccount", s.handleQueryAccount)
	mux.HandleFunc("/internal/queryBlock", s.handleQueryBlock)
	mux.HandleFunc("/internal/queryBlocksRange", s.handleQueryBlocksRange)
	mux.HandleFunc("/internal/queryLatestBlock", s.handleQueryLatestBlock)
	mux.HandleFunc("/internal/queryTransaction", s.handleQueryTransaction)
	mux.HandleFunc("/internal/txsByAddress", s.handleTxsByAddress)
	mux.HandleFunc("/internal/initGenesis", s.handleInitGenesis)
	mux.HandleFunc("/internal/reportError", s.handleReportError)
	mux.HandleFunc("/internal/triggerBackup", s.handleTriggerBackup)
	mux.HandleFunc("/internal/restore", s.handleRestore)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start binds the listener synchronously and serves asynchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[coordinator] server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the actual bound address (useful when addr used port 0).
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, core.NewError(core.KindMalformedRequest, "%v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := core.KindOf(err)
	switch kind {
	case core.KindMalformedRequest, core.KindAddressMismatch, core.KindDuplicateTransaction,
		core.KindSequenceMismatch, core.KindInsufficientBalance, core.KindWrongHeight,
		core.KindWrongParent, core.KindBadHash, core.KindBadTxRoot, core.KindBadStateRoot,
		core.KindTxCountMismatch:
		status = http.StatusBadRequest
	case core.KindInvalidSignature:
		status = http.StatusUnauthorized
	case core.KindRoundInProgress, core.KindAlreadyInitialised:
		status = http.StatusConflict
	case core.KindEmpty, core.KindInsufficientSigs:
		status = http.StatusUnprocessableEntity
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindCidMismatch:
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"kind": string(kind), "error": err.Error()})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if !readJSON(w, r, &tx) {
		return
	}
	if err := s.c.AddTransaction(&tx); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleAcquireLock(w http.ResponseWriter, r *http.Request) {
	txs, err := s.c.AcquireProcessingLock()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, txs)
}

func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClearQueue bool `json:"clearQueue"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := s.c.ReleaseProcessingLock(body.ClearQueue); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handlePackBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProposerID core.Address `json:"proposerId"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	block, err := s.c.PackBlock(body.ProposerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, block)
}

func (s *Server) handleCommitBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Block *core.Block `json:"block"`
		Votes []core.Vote `json:"votes"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	summary, err := s.c.CommitBlock(body.Block, body.Votes)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.c.Config()
	writeJSON(w, &cfg)
}

func (s *Server) handleQueryState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.c.QueryState())
}

func (s *Server) handleQueryAccount(w http.ResponseWriter, r *http.Request) {
	addr := core.Address(r.URL.Query().Get("addr"))
	writeJSON(w, s.c.QueryAccount(addr))
}

func (s *Server) handleQueryBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.URL.Query().Get("height"), 10, 64)
	if err != nil {
		writeErr(w, core.NewError(core.KindMalformedRequest, "invalid height"))
		return
	}
	block, err := s.c.QueryBlock(height)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, block)
}

func (s *Server) handleQueryBlocksRange(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.ParseUint(r.URL.Query().Get("start"), 10, 64)
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	blocks, err := s.c.QueryBlocksRange(start, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, blocks)
}

func (s *Server) handleQueryLatestBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.c.QueryLatestBlock()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, block)
}

func (s *Server) handleQueryTransaction(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	tx, pending, err := s.c.QueryTransaction(hash)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"transaction": tx, "pending": pending})
}

func (s *Server) handleTxsByAddress(w http.ResponseWriter, r *http.Request) {
	addr := core.Address(r.URL.Query().Get("addr"))
	txs, err := s.c.GetTransactionsByAddress(addr)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, txs)
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
	if err := s.c.InitGenesis(&body.Genesis, body.Force); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	cid, err := s.c.TriggerBackup(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"cid": cid})
}

type restoreBody struct {
	State *core.WorldState `json:"state"`
	Cid   string           `json:"cid"`
	Force bool             `json:"force"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var body restoreBody
	if !readJSON(w, r, &body) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	req := backup.RestoreRequest{State: body.State, Cid: body.Cid, Force: body.Force}
	if err := s.c.Restore(ctx, req); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleReportError(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := s.c.ReportError(body.Message); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}
