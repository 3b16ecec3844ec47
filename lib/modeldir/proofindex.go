// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package modeldir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/dnaledger/lib/codec"
)

// ProofIndexFileName is the proof index's file name under the models
// root.
const ProofIndexFileName = "ledger_proof_index.cbor"

// ProofRecord maps a DNA to its certified directory and ledger entry.
type ProofRecord struct {
	DNA           string    `cbor:"dna" json:"dna"`
	Directory     string    `cbor:"directory" json:"directory"`
	ImmutableHash string    `cbor:"immutable_hash" json:"immutable_hash"`
	RecordedAt    time.Time `cbor:"recorded_at" json:"recorded_at"`
}

// ProofIndex is an append-only CBOR sequence of ProofRecords. Records
// are never rewritten; a DNA certified twice has two records and
// Lookup returns the latest.
type ProofIndex struct {
	path string
	mu   sync.Mutex
}

// OpenProofIndex returns the index stored under root. The file is
// created on the first Add.
func OpenProofIndex(root string) *ProofIndex {
	return &ProofIndex{path: filepath.Join(root, ProofIndexFileName)}
}

// Path returns the index file path.
func (p *ProofIndex) Path() string { return p.path }

// Add appends record. A torn record left by an interrupted Add is cut
// off first so the new record starts on a record boundary.
func (p *ProofIndex) Add(record ProofRecord) error {
	if record.DNA == "" || record.Directory == "" || record.ImmutableHash == "" {
		return fmt.Errorf("modeldir: proof record needs dna, directory and immutable_hash")
	}
	encoded, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("modeldir: encoding proof record: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("modeldir: opening proof index: %w", err)
	}
	defer file.Close()

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("modeldir: reading proof index: %w", err)
	}
	_, valid, err := codec.ReadSequence[ProofRecord](data)
	if err != nil {
		return fmt.Errorf("modeldir: proof index %s is corrupt: %w", p.path, err)
	}
	if valid < len(data) {
		if err := file.Truncate(int64(valid)); err != nil {
			return fmt.Errorf("modeldir: truncating torn proof record: %w", err)
		}
	}
	if _, err := file.WriteAt(encoded, int64(valid)); err != nil {
		return fmt.Errorf("modeldir: appending proof record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("modeldir: syncing proof index: %w", err)
	}
	return nil
}

// All returns every complete record in append order. A missing index
// is empty.
func (p *ProofIndex) All() ([]ProofRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("modeldir: reading proof index: %w", err)
	}
	records, _, err := codec.ReadSequence[ProofRecord](data)
	if err != nil {
		return records, fmt.Errorf("modeldir: proof index %s is corrupt: %w", p.path, err)
	}
	return records, nil
}

// Lookup returns the most recent record for dna.
func (p *ProofIndex) Lookup(dna string) (ProofRecord, bool, error) {
	records, err := p.All()
	if err != nil {
		return ProofRecord{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].DNA == dna {
			return records[i], true, nil
		}
	}
	return ProofRecord{}, false, nil
}
