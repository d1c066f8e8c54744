package consensus

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/tolelom/quorumchain/proposerapi"
)

// ProposerServer exposes a Proposer's single entry point, POST /trigger,
// for a façade running in a different process to reach. Same mechanics as
// ValidatorServer.
type ProposerServer struct {
	p    *Proposer
	addr string
	srv  *http.Server
	ln   net.Listener
}

// NewProposerServer builds a server around p bound to addr.
func NewProposerServer(p *Proposer, addr string) *ProposerServer {
	mux := http.NewServeMux()
	s := &ProposerServer{p: p, addr: addr}
	mux.HandleFunc("/trigger", s.handleTrigger)
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

func (s *ProposerServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[proposer] server error: %v", err)
		}
	}()
	return nil
}

func (s *ProposerServer) Addr() string { return s.ln.Addr().String() }

func (s *ProposerServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *ProposerServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := s.p.Trigger()
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		_ = json.NewEncoder(w).Encode(proposerapi.TriggerResponse{Error: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(proposerapi.TriggerResponse{
		NoOp:      result.NoOp,
		Height:    result.Height,
		Hash:      result.Hash,
		TxCount:   result.TxCount,
		ElapsedMs: result.ElapsedMs,
	})
}
