// Package dagerrors defines the error kinds the DAG engine's admission
// pipeline and main-chain election can produce (spec.md §7).
package dagerrors

import "github.com/pkg/errors"

// Kind classifies a dagconsensus error so callers can decide whether to
// drop a block, park it, disconnect a peer, or crash the process.
type Kind int

const (
	// KindInvalidBlock covers malformed bytes, bad signatures, and
	// arithmetic overflow/insufficient funds. Logged at DEBUG, block
	// dropped.
	KindInvalidBlock Kind = iota
	// KindMissingLinks means the block is admissible later; it parks
	// in the orphan pool.
	KindMissingLinks
	// KindStoreIO is a disk failure. cmd/xdagd exits with code 2 when
	// one stops the engine from starting; one returned later, from
	// admission or election, is logged and the process keeps running.
	KindStoreIO
	// KindPeerProtocol triggers disconnecting the offending peer with
	// a specific DisconnectReason.
	KindPeerProtocol
	// KindReorgFailure is an internal invariant violation during
	// revert. cmd/xdagd logs it and keeps running; it does not exit.
	KindReorgFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidBlock:
		return "InvalidBlock"
	case KindMissingLinks:
		return "MissingLinks"
	case KindStoreIO:
		return "StoreIO"
	case KindPeerProtocol:
		return "PeerProtocol"
	case KindReorgFailure:
		return "ReorgFailure"
	default:
		return "Unknown"
	}
}

// DAGError wraps an underlying cause with the Kind that determines how
// callers must react to it.
type DAGError struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *DAGError) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Reason + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Reason
}

func (e *DAGError) Unwrap() error { return e.cause }

// New constructs a DAGError with no wrapped cause.
func New(kind Kind, reason string) error {
	return &DAGError{Kind: kind, Reason: reason}
}

// Wrap attaches kind and reason to an underlying cause, preserving it
// for errors.Is/As-style introspection the way pkg/errors.Wrap does.
func Wrap(cause error, kind Kind, reason string) error {
	if cause == nil {
		return nil
	}
	return &DAGError{Kind: kind, Reason: reason, cause: errors.WithStack(cause)}
}

// Invalid builds a KindInvalidBlock error.
func Invalid(reason string) error { return New(KindInvalidBlock, reason) }

// MissingLinks builds a KindMissingLinks error.
func MissingLinks(reason string) error { return New(KindMissingLinks, reason) }

// StoreIO builds a KindStoreIO error wrapping cause.
func StoreIO(cause error, reason string) error { return Wrap(cause, KindStoreIO, reason) }

// PeerProtocol builds a KindPeerProtocol error.
func PeerProtocol(reason string) error { return New(KindPeerProtocol, reason) }

// ReorgFailure builds a KindReorgFailure error.
func ReorgFailure(reason string) error { return New(KindReorgFailure, reason) }

// As reports whether err is (or wraps) a *DAGError, writing it to target.
func As(err error, target **DAGError) bool {
	for err != nil {
		if de, ok := err.(*DAGError); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf extracts the Kind of err if it is a *DAGError, defaulting to
// KindInvalidBlock when err does not carry one (the safest default:
// drop and log rather than silently succeed).
func KindOf(err error) Kind {
	var de *DAGError
	if As(err, &de) {
		return de.Kind
	}
	return KindInvalidBlock
}
