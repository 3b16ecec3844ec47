// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"encoding/json"
	"strconv"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
)

// GenesisEventType is the event type of block 0 and of no other block.
const GenesisEventType = "genesis"

// DefaultValidator is recorded in signatures.validator when a caller
// does not name one.
const DefaultValidator = "system"

// Block is one record of the chain. Blocks are immutable once
// appended.
type Block struct {
	BlockID      int             `json:"block_id"`
	Timestamp    string          `json:"timestamp"`
	PreviousHash string          `json:"previous_hash"`
	CurrentHash  string          `json:"current_hash"`
	EventType    string          `json:"event_type"`
	Data         json.RawMessage `json:"data"`
	Signatures   Signatures      `json:"signatures"`
}

// Signatures holds the per-block attestation fields. Despite the name
// (kept for file compatibility) it carries a content hash and the name
// of the validator that appended the block, not a cryptographic
// signature; ledger entries carry their own Ed25519 signatures inside
// Data.
type Signatures struct {
	DataHash  string `json:"data_hash"`
	Validator string `json:"validator"`
}

// LedgerFile is the on-disk form of a chain.
type LedgerFile struct {
	Blocks      []Block `json:"blocks"`
	LastUpdated string  `json:"last_updated"`
	BlockCount  int     `json:"block_count"`
}

// GenesisData is the payload of block 0.
type GenesisData struct {
	Message       string `json:"message"`
	LedgerVersion int    `json:"ledger_version"`
	CreatedAt     string `json:"created_at"`
}

// LedgerVersion is written into the genesis block of new chains.
const LedgerVersion = 1

// BlockHash computes current_hash for the given block fields.
func BlockHash(blockID int, timestamp, previousHash, dataHash string) string {
	return canonical.Digest([]byte(strconv.Itoa(blockID) + timestamp + previousHash + dataHash))
}

// DecodeData decodes the block payload into v. Numbers decode as
// json.Number when v holds any, so re-encoding reproduces the stored
// bytes.
func (b Block) DecodeData(v any) error {
	return decodeUseNumber(b.Data, v)
}

func cloneBlock(block Block) Block {
	block.Data = append(json.RawMessage(nil), block.Data...)
	return block
}

func cloneBlocks(blocks []Block) []Block {
	cloned := make([]Block, len(blocks))
	for i, block := range blocks {
		cloned[i] = cloneBlock(block)
	}
	return cloned
}
