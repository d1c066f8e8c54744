// Package facade implements the client-facing HTTP API: transaction
// submission, account/block/transaction reads, the devnet faucet, and
// genesis initialisation. It never touches the coordinator's record
// directly — every route goes through internalapi.Client.
package facade

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tolelom/quorumchain/core"
)

// envelope is the response shape every route wraps its payload in.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"requestId"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, RequestID: uuid.New().String()})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch core.KindOf(err) {
	case core.KindMalformedRequest, core.KindAddressMismatch, core.KindDuplicateTransaction,
		core.KindSequenceMismatch, core.KindInsufficientBalance:
		status = http.StatusBadRequest
	case core.KindInvalidSignature:
		status = http.StatusUnauthorized
	case core.KindRoundInProgress, core.KindAlreadyInitialised:
		status = http.StatusConflict
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindCidMismatch:
		status = http.StatusForbidden
	}
	writeErrorStatus(w, status, err.Error())
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg, RequestID: uuid.New().String()})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}
