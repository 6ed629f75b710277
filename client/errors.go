package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected reports an operation on a client that is not in
	// the associated state.
	ErrNotConnected = errors.New("client: not connected")
	// ErrRequestTimeout reports a request whose response did not arrive
	// within the request timeout. Only that request fails.
	ErrRequestTimeout = errors.New("client: request timeout")
	// ErrConnectionLost reports requests failed because the association
	// went down underneath them.
	ErrConnectionLost = errors.New("client: connection lost")
	// ErrCancelled reports a request abandoned by its caller context.
	ErrCancelled = errors.New("client: request cancelled")
	// ErrTooManyPending reports that the pending table is full; the
	// request was never sent.
	ErrTooManyPending = errors.New("client: too many pending requests")
	// ErrSelectionRequired reports an operate on a select-before-operate
	// control whose selection did not succeed.
	ErrSelectionRequired = errors.New("client: selection required before operate")
	// ErrControlUnsupported reports an operate on a status-only object.
	ErrControlUnsupported = errors.New("client: object is not controllable")
)

// ConnectReason classifies association failures.
type ConnectReason int

const (
	ConnectFailed ConnectReason = iota
	ConnectTimeout
	ConnectRefused
	ConnectAssociationRejected
)

func (r ConnectReason) String() string {
	switch r {
	case ConnectTimeout:
		return "timeout"
	case ConnectRefused:
		return "refused"
	case ConnectAssociationRejected:
		return "association rejected"
	default:
		return "failed"
	}
}

// ConnectError reports a failed Connect with the phase outcome
// classified. The transport is fully torn down before it is returned.
type ConnectError struct {
	Reason ConnectReason
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("client: connect %s: %v", e.Reason, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
