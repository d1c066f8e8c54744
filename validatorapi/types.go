// Package validatorapi defines the proposer-to-validator transport: a
// point-to-point, statically-configured HTTP call per validator, never a
// gossip/discovery mechanism.
package validatorapi

import "github.com/tolelom/quorumchain/core"

// ValidateRequest is what the proposer sends to each validator.
type ValidateRequest struct {
	Block      *core.Block  `json:"block"`
	ProposerID core.Address `json:"proposerId"`
}

// ValidateResponse is a validator's verdict. On Valid=false, Error names
// the failing check; the proposer counts the vote as missing, never as an
// error it needs to propagate.
type ValidateResponse struct {
	Valid           bool   `json:"valid"`
	ValidatorID     string `json:"validatorId,omitempty"`
	ValidatorPubKey string `json:"validatorPubKey,omitempty"`
	Signature       string `json:"signature,omitempty"`
	TimestampMs     int64  `json:"timestamp_ms,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Client is what the proposer holds per validator endpoint.
type Client interface {
	Validate(req ValidateRequest) (*ValidateResponse, error)
}
