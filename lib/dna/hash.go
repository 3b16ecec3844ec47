// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dna

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
)

// DatasetHash pairs a dataset path with the SHA-256 of its contents.
// The JSON form is the one recorded in ledger entries.
type DatasetHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// TrainingDataHash returns the hex64 digest of the dataset hash list,
// ordered by path so that the order datasets were supplied in does not
// affect the result.
func TrainingDataHash(datasets []DatasetHash) (string, error) {
	sorted := slices.Clone(datasets)
	slices.SortFunc(sorted, func(a, b DatasetHash) int {
		if order := strings.Compare(a.Path, b.Path); order != 0 {
			return order
		}
		return strings.Compare(a.Hash, b.Hash)
	})
	if sorted == nil {
		sorted = []DatasetHash{}
	}
	digest, err := canonical.HashValue(sorted)
	if err != nil {
		return "", fmt.Errorf("dna: hashing dataset list: %w", err)
	}
	return digest, nil
}

// WeightsHash returns the hex64 digest of a final-weights map. Used
// as the model weights hash when no serialized weights file exists.
func WeightsHash(weights map[string]float64) (string, error) {
	if weights == nil {
		weights = map[string]float64{}
	}
	digest, err := canonical.HashValue(weights)
	if err != nil {
		return "", fmt.Errorf("dna: hashing weights: %w", err)
	}
	return digest, nil
}
