// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package modeldir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/dnaledger/lib/atomicfile"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
)

// File names inside a certified directory.
const (
	DNAFileName         = "dna.json"
	LedgerProofFileName = "ledger_proof.json"
	MetadataFileName    = "metadata.json"
)

// Metadata status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// DNAFile is the content of dna.json: the compact fingerprint and the
// inputs it was built from, so it can be rebuilt and compared.
type DNAFile struct {
	DNA               string             `json:"dna"`
	Model             string             `json:"model"`
	Version           string             `json:"version"`
	FinalWeights      map[string]float64 `json:"final_weights"`
	DatasetCategories []string           `json:"dataset_categories"`
	Timestamp         string             `json:"timestamp"`
}

// Metadata is the content of metadata.json.
type Metadata struct {
	Status           string   `json:"status"`
	Directory        string   `json:"directory"`
	DNA              string   `json:"dna"`
	Model            string   `json:"model"`
	Version          string   `json:"version"`
	Language         string   `json:"language"`
	DatasetTags      []string `json:"dataset_tags"`
	TrainingDataHash string   `json:"training_data_hash"`
	ModelWeightsHash string   `json:"model_weights_hash"`
	CreatedAt        string   `json:"created_at"`
	CompletedAt      string   `json:"completed_at,omitempty"`

	// ImmutableHash is the ledger entry recorded for this directory,
	// set when the status becomes completed.
	ImmutableHash string `json:"immutable_hash,omitempty"`
}

// Sealed reports whether the metadata marks the directory complete.
func (m *Metadata) Sealed() bool {
	return m.Status == StatusCompleted
}

// WriteDNAFile writes dna.json into dir.
func WriteDNAFile(dir string, file DNAFile) error {
	return writeRecord(dir, DNAFileName, file)
}

// ReadDNAFile reads dna.json from dir.
func ReadDNAFile(dir string) (*DNAFile, error) {
	var file DNAFile
	if err := readRecord(dir, DNAFileName, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// WriteLedgerProof writes ledger_proof.json, the entry recorded in the
// ledger for this directory.
func WriteLedgerProof(dir string, entry *ledger.Entry) error {
	return writeRecord(dir, LedgerProofFileName, entry)
}

// ReadLedgerProof reads ledger_proof.json from dir.
func ReadLedgerProof(dir string) (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := readRecord(dir, LedgerProofFileName, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// WriteMetadata writes metadata.json. Setting the status to completed
// seals the directory.
func WriteMetadata(dir string, metadata Metadata) error {
	switch metadata.Status {
	case StatusPending, StatusCompleted:
	default:
		return fmt.Errorf("modeldir: unknown metadata status %q", metadata.Status)
	}
	return writeRecord(dir, MetadataFileName, metadata)
}

// ReadMetadata reads metadata.json from dir.
func ReadMetadata(dir string) (*Metadata, error) {
	var metadata Metadata
	if err := readRecord(dir, MetadataFileName, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// CheckWritable returns ErrSealed if dir's metadata is completed.
// A directory without metadata is writable.
func CheckWritable(dir string) error {
	metadata, err := ReadMetadata(dir)
	if err != nil {
		if errors.Is(err, ErrMissingArtifact) {
			return nil
		}
		return err
	}
	if metadata.Sealed() {
		return fmt.Errorf("%w: %s", ErrSealed, dir)
	}
	return nil
}

func writeRecord(dir, name string, value any) error {
	if err := CheckWritable(dir); err != nil {
		return err
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("modeldir: encoding %s: %w", name, err)
	}
	if err := atomicfile.Write(filepath.Join(dir, name), buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("modeldir: writing %s: %w", name, err)
	}
	return nil
}

func readRecord(dir, name string, value any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return fmt.Errorf("modeldir: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("modeldir: parsing %s: %w", path, err)
	}
	return nil
}
