// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package certify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bureau-foundation/dnaledger/lib/binhash"
	"github.com/bureau-foundation/dnaledger/lib/clock"
	"github.com/bureau-foundation/dnaledger/lib/dna"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
	"github.com/bureau-foundation/dnaledger/lib/modeldir"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// Certifier turns training events into certified model directories.
type Certifier struct {
	// Root is the models root holding certified directories, the
	// current pointer and the proof index.
	Root string

	// DatasetRoot is the base for relative dataset paths.
	DatasetRoot string

	// Ledger records entries. Required.
	Ledger ledger.Client

	// Signer signs entries. Nil records unsigned entries.
	Signer signing.Signer

	// Pointer updates the current pointer. Defaults to a zero
	// modeldir.Pointer.
	Pointer *modeldir.Pointer

	// Clock stamps events without a timestamp and index records.
	// Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Result describes a certified directory.
type Result struct {
	Directory     string            `json:"directory"`
	Name          string            `json:"name"`
	DNA           string            `json:"dna"`
	ImmutableHash string            `json:"immutable_hash"`
	DatasetHashes []dna.DatasetHash `json:"dataset_hashes"`
	Entry         *ledger.Entry     `json:"entry"`
}

// Certify runs the certification path for event.
func (c *Certifier) Certify(ctx context.Context, event *Event) (*Result, error) {
	if c.Ledger == nil {
		return nil, errors.New("certify: no ledger client configured")
	}
	if c.Root == "" {
		return nil, errors.New("certify: no models root configured")
	}
	now := c.clock().Now()
	logger := c.logger()

	timestamp := event.Timestamp
	if timestamp == "" {
		timestamp = clock.Timestamp(now)
	}

	datasetHashes, err := c.hashDatasets(event.Datasets)
	if err != nil {
		return nil, err
	}
	trainingHash, err := dna.TrainingDataHash(datasetHashes)
	if err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}
	weightsHash, err := c.weightsHash(event)
	if err != nil {
		return nil, err
	}

	fingerprint, err := dna.Build(dna.Metadata{
		Model:      event.Model,
		Version:    event.Version,
		Weights:    event.FinalWeights,
		Categories: event.Categories,
		Timestamp:  timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("certify: building dna: %w", err)
	}
	name, err := modeldir.GenerateDirectoryName(dna.DirectoryInputs{
		Model:            event.Model,
		Version:          event.Version,
		Language:         event.Language,
		DatasetTags:      event.Categories,
		TrainingDataHash: trainingHash,
		ModelWeightsHash: weightsHash,
	})
	if err != nil {
		return nil, fmt.Errorf("certify: naming directory: %w", err)
	}

	dir, err := modeldir.Create(c.Root, name)
	if err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}
	if err := modeldir.CheckWritable(dir); err != nil {
		return nil, fmt.Errorf("certify: %s is already certified: %w", name, err)
	}

	language := event.Language
	if language == "" {
		language = dna.DefaultLanguage
	}
	metadata := modeldir.Metadata{
		Status:           modeldir.StatusPending,
		Directory:        name,
		DNA:              fingerprint,
		Model:            event.Model,
		Version:          event.Version,
		Language:         language,
		DatasetTags:      dna.NormalizeTags(event.Categories),
		TrainingDataHash: trainingHash,
		ModelWeightsHash: weightsHash,
		CreatedAt:        clock.Timestamp(now),
	}
	if err := modeldir.WriteMetadata(dir, metadata); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}

	weights := event.FinalWeights
	if weights == nil {
		weights = map[string]float64{}
	}
	categories := event.Categories
	if categories == nil {
		categories = []string{}
	}
	if err := modeldir.WriteDNAFile(dir, modeldir.DNAFile{
		DNA:               fingerprint,
		Model:             event.Model,
		Version:           event.Version,
		FinalWeights:      weights,
		DatasetCategories: categories,
		Timestamp:         timestamp,
	}); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}

	entry := &ledger.Entry{
		Event:          ledger.EventTrainingComplete,
		Model:          event.Model,
		Version:        event.Version,
		DNA:            fingerprint,
		DatasetHashes:  datasetHashes,
		FinalWeights:   weights,
		TrainingConfig: event.TrainingConfig,
		Timestamp:      timestamp,
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}
	if c.Signer != nil {
		err = entry.Sign(c.Signer)
	} else {
		err = entry.Seal()
	}
	if err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}

	id, err := c.Ledger.WriteEntry(ctx, entry.Clone())
	switch {
	case errors.Is(err, ledger.ErrDuplicateEntry):
		logger.Info("ledger already holds this entry, resuming certification",
			"immutable_hash", entry.ImmutableHash,
			"directory", name,
		)
		id = entry.ImmutableHash
	case err != nil:
		return nil, fmt.Errorf("certify: recording entry: %w", err)
	}

	if err := modeldir.WriteLedgerProof(dir, entry); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}
	if err := modeldir.OpenProofIndex(c.Root).Add(modeldir.ProofRecord{
		DNA:           fingerprint,
		Directory:     name,
		ImmutableHash: id,
		RecordedAt:    now.UTC(),
	}); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}

	metadata.Status = modeldir.StatusCompleted
	metadata.CompletedAt = clock.Timestamp(c.clock().Now())
	metadata.ImmutableHash = id
	if err := modeldir.WriteMetadata(dir, metadata); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}

	pointer := c.Pointer
	if pointer == nil {
		pointer = &modeldir.Pointer{Logger: logger}
	}
	if err := pointer.Update(c.Root, name); err != nil {
		return nil, fmt.Errorf("certify: %w", err)
	}

	logger.Info("model certified",
		"directory", name,
		"dna", fingerprint,
		"immutable_hash", id,
		"signed", entry.Signed(),
	)
	return &Result{
		Directory:     dir,
		Name:          name,
		DNA:           fingerprint,
		ImmutableHash: id,
		DatasetHashes: datasetHashes,
		Entry:         entry,
	}, nil
}

func (c *Certifier) hashDatasets(paths []string) ([]dna.DatasetHash, error) {
	hashes := make([]dna.DatasetHash, 0, len(paths))
	for _, path := range paths {
		hash, err := binhash.HashPath(c.resolve(path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("certify: dataset %s: %w", path, modeldir.ErrMissingArtifact)
			}
			return nil, fmt.Errorf("certify: dataset %s: %w", path, err)
		}
		hashes = append(hashes, dna.DatasetHash{Path: path, Hash: hash})
	}
	return hashes, nil
}

func (c *Certifier) weightsHash(event *Event) (string, error) {
	if event.WeightsFile == "" {
		return dna.WeightsHash(event.FinalWeights)
	}
	hash, err := binhash.HashPath(event.WeightsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("certify: weights file %s: %w", event.WeightsFile, modeldir.ErrMissingArtifact)
		}
		return "", fmt.Errorf("certify: weights file: %w", err)
	}
	return hash, nil
}

func (c *Certifier) resolve(path string) string {
	if filepath.IsAbs(path) || c.DatasetRoot == "" {
		return path
	}
	return filepath.Join(c.DatasetRoot, path)
}

func (c *Certifier) clock() clock.Clock {
	if c.Clock == nil {
		return clock.Real()
	}
	return c.Clock
}

func (c *Certifier) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
