// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// Sentinel errors shared by every Client implementation.
var (
	ErrDuplicateEntry = errors.New("ledger: duplicate entry")
	ErrNotFound       = errors.New("ledger: entry not found")
	ErrInvalidEntry   = errors.New("ledger: invalid entry")
)

// NetworkError is a transport failure talking to a remote ledger:
// connection refused, DNS failure, timeout. No retry is attempted;
// the caller decides.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("ledger: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is an unexpected HTTP status from a remote ledger.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger: remote returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ledger: remote returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Kind classifies a ledger error.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindDuplicate: the entry's immutable hash already exists.
	KindDuplicate
	// KindNotFound: no entry has the requested id.
	KindNotFound
	// KindInvalid: the entry or request is malformed.
	KindInvalid
	// KindNetwork: the remote ledger could not be reached.
	KindNetwork
	// KindIO: local storage failed.
	KindIO
	// KindRemote: the remote ledger answered with an unexpected error.
	KindRemote
	// KindUnavailable: a signature could not be checked at all.
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindNone:        "none",
	KindDuplicate:   "duplicate",
	KindNotFound:    "not_found",
	KindInvalid:     "invalid",
	KindNetwork:     "network",
	KindIO:          "io",
	KindRemote:      "remote",
	KindUnavailable: "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Expected reports whether errors of this kind are ordinary outcomes
// of a correct request (duplicate, not found, invalid) rather than
// faults in the system.
func (k Kind) Expected() bool {
	switch k {
	case KindDuplicate, KindNotFound, KindInvalid:
		return true
	default:
		return false
	}
}

// KindOf classifies err. Unrecognized errors are KindIO: they come
// from storage or encoding below the ledger (a full or closed chain,
// a failed file write).
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var networkError *NetworkError
	var remoteError *RemoteError
	switch {
	case errors.Is(err, ErrDuplicateEntry):
		return KindDuplicate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidEntry):
		return KindInvalid
	case errors.Is(err, signing.ErrUnavailable):
		return KindUnavailable
	case errors.As(err, &networkError):
		return KindNetwork
	case errors.As(err, &remoteError):
		return KindRemote
	default:
		return KindIO
	}
}

func isMalformedKey(err error) bool {
	return errors.Is(err, signing.ErrMalformedKey)
}
