// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dna builds the content-derived fingerprints that name
// trained models.
//
// A fingerprint is a pure function of its inputs: the same metadata
// always yields the same string, and changing any single input changes
// it. This is what lets the integrity verifier treat a fingerprint (or
// a directory named by one) as a checkable claim rather than a label.
//
// Two forms exist:
//
//	M.v1.0.3f2a9c1e.8b7d0a44.c0ffee12
//	M.v1.0.en.dsCivic-Legal.1a2b3c4d5e6f7a8b.9c8d7e6f5a4b3c2d
//
// The compact form ([Build]) goes into ledger payloads and DNA files.
// The directory form ([DirectoryName]) embeds language and dataset
// tags directly and carries two independently sourced 16-character
// content hashes (training data, model weights).
package dna

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
)

// DefaultTag replaces an empty category or dataset tag list. A
// fingerprint never contains an empty segment.
const DefaultTag = "Default"

// DefaultLanguage is used by DirectoryName when no language is given.
const DefaultLanguage = "en"

const (
	compactHashLength   = 8
	directoryHashLength = 16
)

// ErrInvalidName is returned when a model name, version or language
// cannot appear in a fingerprint: empty, containing a path separator,
// or a relative path component.
var ErrInvalidName = errors.New("dna: invalid name component")

// Metadata is the input to the compact fingerprint.
type Metadata struct {
	Model      string
	Version    string
	Weights    map[string]float64
	Categories []string
	Timestamp  string
}

// Build returns the compact fingerprint
// {model}.v{version}.{weights8}.{categories8}.{timestamp8}.
func Build(metadata Metadata) (string, error) {
	if err := validateComponent("model", metadata.Model); err != nil {
		return "", err
	}
	if err := validateComponent("version", metadata.Version); err != nil {
		return "", err
	}

	weights := metadata.Weights
	if weights == nil {
		weights = map[string]float64{}
	}
	weightsHash, err := canonical.ShortDigest(weights, compactHashLength)
	if err != nil {
		return "", fmt.Errorf("dna: hashing weights: %w", err)
	}
	categoriesHash, err := canonical.ShortDigest(categoryList(metadata.Categories), compactHashLength)
	if err != nil {
		return "", fmt.Errorf("dna: hashing categories: %w", err)
	}
	timestampHash, err := canonical.ShortDigest(metadata.Timestamp, compactHashLength)
	if err != nil {
		return "", fmt.Errorf("dna: hashing timestamp: %w", err)
	}

	return strings.Join([]string{
		metadata.Model,
		"v" + metadata.Version,
		weightsHash,
		categoriesHash,
		timestampHash,
	}, "."), nil
}

// DirectoryInputs is the input to the directory-naming fingerprint.
// TrainingDataHash and ModelWeightsHash are full hex64 digests from
// independent sources (see [TrainingDataHash] and [WeightsHash], or a
// file hash of the serialized weights).
type DirectoryInputs struct {
	Model            string
	Version          string
	Language         string
	DatasetTags      []string
	TrainingDataHash string
	ModelWeightsHash string
}

// DirectoryName returns
// {model}.v{version}.{lang}.ds{Tag1-Tag2}.{training16}.{weights16}.
func DirectoryName(inputs DirectoryInputs) (string, error) {
	if err := validateComponent("model", inputs.Model); err != nil {
		return "", err
	}
	if err := validateComponent("version", inputs.Version); err != nil {
		return "", err
	}
	language := inputs.Language
	if language == "" {
		language = DefaultLanguage
	}
	if err := validateComponent("language", language); err != nil {
		return "", err
	}
	if !canonical.IsDigest(inputs.TrainingDataHash) {
		return "", fmt.Errorf("dna: training data hash %q is not a hex64 digest", inputs.TrainingDataHash)
	}
	if !canonical.IsDigest(inputs.ModelWeightsHash) {
		return "", fmt.Errorf("dna: model weights hash %q is not a hex64 digest", inputs.ModelWeightsHash)
	}

	return strings.Join([]string{
		inputs.Model,
		"v" + inputs.Version,
		language,
		"ds" + strings.Join(NormalizeTags(inputs.DatasetTags), "-"),
		inputs.TrainingDataHash[:directoryHashLength],
		inputs.ModelWeightsHash[:directoryHashLength],
	}, "."), nil
}

// NormalizeTags sanitises, de-duplicates and sorts tags. Characters
// other than letters, digits and underscore are dropped so a tag can
// never introduce a "." or "-" separator. An empty result becomes
// [DefaultTag].
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		if cleaned := sanitizeTag(tag); cleaned != "" {
			normalized = append(normalized, cleaned)
		}
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)
	if len(normalized) == 0 {
		return []string{DefaultTag}
	}
	return normalized
}

// categoryList sorts and de-duplicates categories without altering
// their text; the compact form hashes them rather than embedding them.
func categoryList(categories []string) []string {
	list := make([]string, 0, len(categories))
	for _, category := range categories {
		if category != "" {
			list = append(list, category)
		}
	}
	slices.Sort(list)
	list = slices.Compact(list)
	if len(list) == 0 {
		return []string{DefaultTag}
	}
	return list
}

func sanitizeTag(tag string) string {
	var builder strings.Builder
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func validateComponent(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidName, field)
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s %q", ErrInvalidName, field, value)
	}
	return nil
}
