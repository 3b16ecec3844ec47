// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
)

// Report is the result of verifying a chain. Every block is checked;
// verification never stops at the first problem.
type Report struct {
	Valid          bool         `json:"valid"`
	Errors         []BlockError `json:"errors"`
	VerifiedBlocks int          `json:"verified_blocks"`
	TotalBlocks    int          `json:"total_blocks"`
}

// BlockError lists everything wrong with one block. A block appears at
// most once in a Report.
type BlockError struct {
	BlockID  int      `json:"block_id"`
	Problems []string `json:"problems"`
}

func (e BlockError) Error() string {
	return fmt.Sprintf("block %d: %s", e.BlockID, strings.Join(e.Problems, "; "))
}

// VerifyBlocks checks a sequence of blocks as a chain:
//
//   - block_id matches the position in the sequence
//   - data_hash is the digest of the canonical data
//   - current_hash matches the hash of the block's own fields
//   - block 0 is a genesis block with the zero previous_hash, and no
//     other block claims to be genesis
//   - previous_hash equals the stored current_hash of the block before
//
// Every block's link is checked. When the block before it has a
// current_hash that does not match its own fields, a link to either
// the stored or the recomputed hash is accepted, so an altered
// current_hash produces exactly one BlockError naming the altered
// block instead of also blaming its successor.
//
// event_type and validator are not inputs to current_hash. Where a
// payload records its own event name (ledger entries do), event_type
// is checked against it.
func VerifyBlocks(blocks []Block) Report {
	report := Report{TotalBlocks: len(blocks), Errors: []BlockError{}}
	// recomputed is the previous block's hash over its own fields,
	// set only when that differs from its stored current_hash.
	var recomputed string

	for position, block := range blocks {
		var problems []string

		if block.BlockID != position {
			problems = append(problems, fmt.Sprintf("block_id %d at position %d", block.BlockID, position))
		}

		data, err := canonical.Compact(block.Data)
		if err != nil {
			problems = append(problems, fmt.Sprintf("data is not canonicalizable: %v", err))
		} else if digest := canonical.Digest(data); digest != block.Signatures.DataHash {
			problems = append(problems, fmt.Sprintf("data_hash mismatch: stored %s, computed %s", block.Signatures.DataHash, digest))
		}

		expected := BlockHash(block.BlockID, block.Timestamp, block.PreviousHash, block.Signatures.DataHash)
		hashMismatch := expected != block.CurrentHash
		if hashMismatch {
			problems = append(problems, fmt.Sprintf("current_hash mismatch: stored %s, computed %s", block.CurrentHash, expected))
		}

		if position == 0 {
			if block.PreviousHash != canonical.ZeroDigest {
				problems = append(problems, "genesis previous_hash is not the zero digest")
			}
			if block.EventType != GenesisEventType {
				problems = append(problems, fmt.Sprintf("block 0 has event_type %q, want %q", block.EventType, GenesisEventType))
			}
		} else {
			if block.EventType == GenesisEventType {
				problems = append(problems, "genesis event_type on a non-genesis block")
			}
			linked := block.PreviousHash == blocks[position-1].CurrentHash ||
				(recomputed != "" && block.PreviousHash == recomputed)
			if !linked {
				problems = append(problems, fmt.Sprintf("previous_hash %s does not match block %d current_hash %s",
					block.PreviousHash, position-1, blocks[position-1].CurrentHash))
			}
		}

		if problem := eventTypeProblem(block, data); problem != "" {
			problems = append(problems, problem)
		}

		recomputed = ""
		if hashMismatch {
			recomputed = expected
		}
		if len(problems) == 0 {
			report.VerifiedBlocks++
		} else {
			report.Errors = append(report.Errors, BlockError{BlockID: position, Problems: problems})
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// eventTypeProblem checks event_type against an "event" string in the
// payload, when the payload is an object that has one.
func eventTypeProblem(block Block, data []byte) string {
	if data == nil || block.EventType == GenesisEventType {
		return ""
	}
	var payload map[string]any
	if err := decodeUseNumber(data, &payload); err != nil {
		return ""
	}
	event, ok := payload["event"].(string)
	if !ok || event == block.EventType {
		return ""
	}
	return fmt.Sprintf("event_type %q does not match payload event %q", block.EventType, event)
}
