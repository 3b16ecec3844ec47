// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import "context"

// Client is write-once access to ledger entries. Implementations must
// be indistinguishable to callers except for latency and availability.
type Client interface {
	// WriteEntry stores entry and returns its id, the immutable hash.
	// An empty ImmutableHash is computed and filled in; a provided one
	// must match the content (ErrInvalidEntry). An id that already
	// exists is rejected with ErrDuplicateEntry.
	WriteEntry(ctx context.Context, entry *Entry) (string, error)

	// ReadEntry returns the entry with the given id, or ErrNotFound.
	ReadEntry(ctx context.Context, id string) (*Entry, error)

	// VerifyEntry reports whether the stored entry still hashes to its
	// id, its storage is intact, and its signature (if any) verifies.
	// It returns ErrNotFound for an unknown id and an error wrapping
	// signing.ErrUnavailable when the signature cannot be checked.
	VerifyEntry(ctx context.Context, id string) (bool, error)

	// ListEntries returns the newest limit entries, oldest first. A
	// limit of zero or less returns all entries.
	ListEntries(ctx context.Context, limit int) ([]Entry, error)
}
