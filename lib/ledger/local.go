// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// LocalOptions configures NewLocal.
type LocalOptions struct {
	// Verifier checks entry signatures. Defaults to
	// signing.Ed25519Verifier.
	Verifier signing.Verifier

	// Validator is recorded on blocks of unsigned entries. Signed
	// entries record the signer's public key. Defaults to
	// chain.DefaultValidator.
	Validator string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Local is a Client storing one chain block per entry.
type Local struct {
	chain     *chain.Chain
	verifier  signing.Verifier
	validator string
	logger    *slog.Logger

	mu sync.Mutex
	// index maps immutable hash to block id.
	index map[string]int
}

var _ Client = (*Local)(nil)

// NewLocal wraps an open chain. The hash index is rebuilt from the
// chain's blocks; blocks whose payload is not an entry (genesis, other
// event kinds) are skipped.
func NewLocal(ledgerChain *chain.Chain, options LocalOptions) *Local {
	local := &Local{
		chain:     ledgerChain,
		verifier:  options.Verifier,
		validator: options.Validator,
		logger:    options.Logger,
		index:     make(map[string]int),
	}
	if local.verifier == nil {
		local.verifier = signing.Ed25519Verifier{}
	}
	if local.validator == "" {
		local.validator = chain.DefaultValidator
	}
	if local.logger == nil {
		local.logger = slog.Default()
	}

	for _, block := range ledgerChain.Blocks(chain.Filter{}) {
		entry, ok := entryFromBlock(block)
		if !ok {
			continue
		}
		if existing, duplicate := local.index[entry.ImmutableHash]; duplicate {
			local.logger.Warn("ledger chain holds a duplicate entry, keeping the first",
				"immutable_hash", entry.ImmutableHash,
				"first_block", existing,
				"duplicate_block", block.BlockID,
			)
			continue
		}
		local.index[entry.ImmutableHash] = block.BlockID
	}
	return local
}

// Chain returns the underlying chain.
func (l *Local) Chain() *chain.Chain { return l.chain }

// WriteEntry implements Client.
func (l *Local) WriteEntry(ctx context.Context, entry *Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := entry.Seal(); err != nil {
		return "", err
	}
	if err := entry.Validate(); err != nil {
		return "", err
	}

	validator := l.validator
	if entry.Signed() {
		validator = *entry.SignerPublicKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if blockID, exists := l.index[entry.ImmutableHash]; exists {
		return "", fmt.Errorf("%w: %s (block %d)", ErrDuplicateEntry, entry.ImmutableHash, blockID)
	}
	block, err := l.chain.Append(entry.Event, entry, validator)
	if err != nil {
		return "", fmt.Errorf("ledger: appending entry: %w", err)
	}
	l.index[entry.ImmutableHash] = block.BlockID

	l.logger.Info("ledger entry written",
		"immutable_hash", entry.ImmutableHash,
		"event", entry.Event,
		"dna", entry.DNA,
		"block_id", block.BlockID,
		"signed", entry.Signed(),
	)
	return entry.ImmutableHash, nil
}

// ReadEntry implements Client.
func (l *Local) ReadEntry(ctx context.Context, id string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	block, err := l.blockFor(id)
	if err != nil {
		return nil, err
	}
	entry, ok := entryFromBlock(block)
	if !ok {
		return nil, fmt.Errorf("ledger: block %d no longer holds an entry", block.BlockID)
	}
	return entry, nil
}

// VerifyEntry implements Client. Besides the entry's own hash and
// signature it checks the block holding it: data hash, block hash,
// and the link to the preceding block.
func (l *Local) VerifyEntry(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	block, err := l.blockFor(id)
	if err != nil {
		return false, err
	}

	if !l.blockIntact(block) {
		l.logger.Warn("ledger entry block failed verification", "immutable_hash", id, "block_id", block.BlockID)
		return false, nil
	}

	entry, ok := entryFromBlock(block)
	if !ok {
		return false, nil
	}
	computed, err := entry.ComputeImmutableHash()
	if err != nil || computed != id {
		return false, nil
	}
	if !entry.Signed() {
		return true, nil
	}
	valid, err := entry.VerifySignature(l.verifier)
	if err != nil {
		return false, fmt.Errorf("ledger: verifying signature of %s: %w", id, err)
	}
	return valid, nil
}

// ListEntries implements Client.
func (l *Local) ListEntries(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := []Entry{}
	for _, block := range l.chain.Blocks(chain.Filter{}) {
		if entry, ok := entryFromBlock(block); ok {
			entries = append(entries, *entry)
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (l *Local) blockFor(id string) (chain.Block, error) {
	l.mu.Lock()
	blockID, ok := l.index[id]
	l.mu.Unlock()
	if !ok {
		return chain.Block{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	block, ok := l.chain.Block(blockID)
	if !ok {
		return chain.Block{}, fmt.Errorf("%w: %s (block %d missing)", ErrNotFound, id, blockID)
	}
	return block, nil
}

func (l *Local) blockIntact(block chain.Block) bool {
	if canonical.Digest(block.Data) != block.Signatures.DataHash {
		return false
	}
	if chain.BlockHash(block.BlockID, block.Timestamp, block.PreviousHash, block.Signatures.DataHash) != block.CurrentHash {
		return false
	}
	previous, ok := l.chain.Block(block.BlockID - 1)
	return ok && previous.CurrentHash == block.PreviousHash
}

// entryFromBlock decodes a block payload as an entry. Payloads without
// a well-formed immutable_hash are not entries.
func entryFromBlock(block chain.Block) (*Entry, bool) {
	if block.EventType == chain.GenesisEventType {
		return nil, false
	}
	var entry Entry
	if err := block.DecodeData(&entry); err != nil {
		return nil, false
	}
	if !canonical.IsDigest(entry.ImmutableHash) {
		return nil, false
	}
	return &entry, true
}
