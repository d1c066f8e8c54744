package facade

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/tolelom/quorumchain/internalapi"
	"github.com/tolelom/quorumchain/wallet"
)

// Server is the client-facing REST API. Mechanics (timeouts, body-size
// cap, graceful shutdown) follow coordinator.Server's own construction.
type Server struct {
	client    internalapi.Client
	faucet    *wallet.Wallet // nil disables /faucet
	authToken string         // bearer token required on /faucet and /admin routes, empty → no auth
	trigger   func()         // fires the proposer after a transaction is admitted, nil disables it
	addr      string
	srv       *http.Server
	ln        net.Listener
}

// NewServer builds a façade HTTP server bound to addr. faucet may be nil
// (disables /faucet); authToken may be empty (disables /faucet and /admin
// auth); trigger
// may be nil (submission still admits the transaction, nothing wakes the
// proposer) and is always called off the request goroutine.
func NewServer(addr string, client internalapi.Client, faucet *wallet.Wallet, authToken string, trigger func()) *Server {
	s := &Server{client: client, faucet: faucet, authToken: authToken, trigger: trigger, addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /tx/submit", s.handleSubmitTx)
	mux.HandleFunc("GET /tx/{hash}", s.handleGetTx)
	mux.HandleFunc("GET /account/{addr}", s.handleGetAccount)
	mux.HandleFunc("GET /account/{addr}/txs", s.handleGetAccountTxs)
	mux.HandleFunc("GET /block/latest", s.handleLatestBlock)
	mux.HandleFunc("GET /block/{height}", s.handleGetBlock)
	mux.HandleFunc("POST /faucet", s.requireAuth(s.handleFaucet))
	mux.HandleFunc("POST /admin/init-genesis", s.requireAuth(s.handleInitGenesis))

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

// requireAuth wraps an admin route with bearer-token auth. A blank
// authToken disables the check entirely (devnet convenience).
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.authToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.authToken {
			writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
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
			log.Printf("[facade] server error: %v", err)
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
