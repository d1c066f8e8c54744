package consensus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/tolelom/quorumchain/validatorapi"
)

// ValidatorServer exposes a Validator's single endpoint, POST /validate,
// over HTTP/JSON, following the façade's and coordinator's own server
// construction (timeouts, body-size cap, graceful shutdown). When tlsConfig
// is non-nil the listener requires mTLS, matching the proposer's
// validatorapi.HTTPClient on the other end.
type ValidatorServer struct {
	v         *Validator
	addr      string
	tlsConfig *tls.Config
	srv       *http.Server
	ln        net.Listener
}

// NewValidatorServer builds a server around v bound to addr. tlsConfig may
// be nil (plain TCP).
func NewValidatorServer(v *Validator, addr string, tlsConfig *tls.Config) *ValidatorServer {
	mux := http.NewServeMux()
	s := &ValidatorServer{v: v, addr: addr, tlsConfig: tlsConfig}
	mux.HandleFunc("/validate", s.handleValidate)
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

func (s *ValidatorServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[validator] server error: %v", err)
		}
	}()
	return nil
}

func (s *ValidatorServer) Addr() string { return s.ln.Addr().String() }

func (s *ValidatorServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *ValidatorServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	var req validatorapi.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(validatorapi.ValidateResponse{Valid: false, Error: "malformed request"})
		return
	}
	resp := s.v.Validate(req)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
