package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the façade can map it to an HTTP status
// without string-matching error text.
type Kind string

const (
	KindMalformedRequest     Kind = "MalformedRequest"
	KindInvalidSignature     Kind = "InvalidSignature"
	KindAddressMismatch      Kind = "AddressMismatch"
	KindDuplicateTransaction Kind = "DuplicateTransaction"
	KindSequenceMismatch     Kind = "SequenceMismatch"
	KindInsufficientBalance  Kind = "InsufficientBalance"
	KindRoundInProgress      Kind = "RoundInProgress"
	KindEmpty                Kind = "Empty"
	KindWrongHeight          Kind = "WrongHeight"
	KindWrongParent          Kind = "WrongParent"
	KindInsufficientSigs     Kind = "InsufficientSignatures"
	KindBadHash              Kind = "BadHash"
	KindBadTxRoot            Kind = "BadTxRoot"
	KindBadStateRoot         Kind = "BadStateRoot"
	KindTxCountMismatch      Kind = "TxCountMismatch"
	KindAlreadyInitialised   Kind = "AlreadyInitialised"
	KindCidMismatch          Kind = "CidMismatch"
	KindNotFound             Kind = "NotFound"
)

// Error is a Kind-tagged error. The façade reads Kind to choose an HTTP
// status and never forwards Detail verbatim if it might carry internals.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewError builds a Kind-tagged error with a formatted detail.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or "" if err isn't a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrNotFound is the sentinel returned by storage lookups that miss.
var ErrNotFound = &Error{Kind: KindNotFound, Detail: "not found"}
