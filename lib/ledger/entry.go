// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/chain"
	"github.com/bureau-foundation/dnaledger/lib/dna"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// EventTrainingComplete is the event name the certification path
// records.
const EventTrainingComplete = "training_complete"

// Entry is a provenance record. Field names are the wire and file
// format shared with other implementations.
type Entry struct {
	Event         string             `json:"event"`
	Model         string             `json:"model"`
	Version       string             `json:"version"`
	DNA           string             `json:"dna"`
	DatasetHashes []dna.DatasetHash  `json:"dataset_hashes"`
	FinalWeights  map[string]float64 `json:"final_weights"`

	// TrainingConfig is carried opaquely. It participates in the
	// immutable hash through its canonical form.
	TrainingConfig json.RawMessage `json:"training_config"`

	Timestamp     string `json:"timestamp"`
	ImmutableHash string `json:"immutable_hash"`

	// Signature and SignerPublicKey are both set or both nil.
	Signature       *string `json:"signature"`
	SignerPublicKey *string `json:"signer_public_key"`
}

// Fields excluded from the hashed and signed payloads.
var (
	hashExcluded    = []string{"immutable_hash", "signature", "signer_public_key"}
	signingExcluded = []string{"signature", "signer_public_key"}
)

// ComputeImmutableHash returns the SHA-256 of the canonical entry
// without immutable_hash, signature and signer_public_key.
func (e *Entry) ComputeImmutableHash() (string, error) {
	payload, err := canonical.Without(e, hashExcluded...)
	if err != nil {
		return "", fmt.Errorf("ledger: building hash payload: %w", err)
	}
	return canonical.HashValue(payload)
}

// SigningPayload returns the bytes a signature covers: the canonical
// entry without signature and signer_public_key. The immutable hash is
// included, so a signature also attests to the entry's identifier.
func (e *Entry) SigningPayload() ([]byte, error) {
	payload, err := canonical.Without(e, signingExcluded...)
	if err != nil {
		return nil, fmt.Errorf("ledger: building signing payload: %w", err)
	}
	return canonical.Marshal(payload)
}

// Seal fills ImmutableHash when it is empty, or checks it when it is
// set. A mismatch is an error wrapping ErrInvalidEntry.
func (e *Entry) Seal() error {
	computed, err := e.ComputeImmutableHash()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if e.ImmutableHash == "" {
		if e.DatasetHashes == nil || e.FinalWeights == nil {
			// New entries record empty collections as [] and {}, not
			// null, matching what other writers produce.
			if e.DatasetHashes == nil {
				e.DatasetHashes = []dna.DatasetHash{}
			}
			if e.FinalWeights == nil {
				e.FinalWeights = map[string]float64{}
			}
			if computed, err = e.ComputeImmutableHash(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
			}
		}
		e.ImmutableHash = computed
		return nil
	}
	if e.ImmutableHash != computed {
		return fmt.Errorf("%w: immutable_hash %s does not match content hash %s", ErrInvalidEntry, e.ImmutableHash, computed)
	}
	return nil
}

// Sign seals the entry and signs its signing payload.
func (e *Entry) Sign(signer signing.Signer) error {
	e.Signature = nil
	e.SignerPublicKey = nil
	if err := e.Seal(); err != nil {
		return err
	}
	payload, err := e.SigningPayload()
	if err != nil {
		return err
	}
	signature, err := signer.Sign(payload)
	if err != nil {
		return fmt.Errorf("ledger: signing entry: %w", err)
	}
	publicKey := signer.PublicKeyHex()
	e.Signature = &signature
	e.SignerPublicKey = &publicKey
	return nil
}

// Signed reports whether the entry carries a signature and key.
func (e *Entry) Signed() bool {
	return e.Signature != nil && e.SignerPublicKey != nil
}

// VerifySignature checks the entry's signature. It returns false with
// a nil error for an unsigned entry, a malformed signature or key, or a
// signature that does not verify, and signing.ErrUnavailable when the
// verifier cannot check at all.
func (e *Entry) VerifySignature(verifier signing.Verifier) (bool, error) {
	if !e.Signed() {
		return false, nil
	}
	payload, err := e.SigningPayload()
	if err != nil {
		return false, err
	}
	valid, err := verifier.Verify(payload, *e.Signature, *e.SignerPublicKey)
	if err != nil {
		if isMalformedKey(err) {
			return false, nil
		}
		return false, err
	}
	return valid, nil
}

// Validate checks the entry's structure: required fields present, the
// event not the genesis event, dataset hashes in hex64 form, weights
// finite, signature fields consistent. It does not check the immutable hash (see Seal) or the
// signature (see VerifySignature).
func (e *Entry) Validate() error {
	for _, field := range []struct{ name, value string }{
		{"event", e.Event},
		{"model", e.Model},
		{"version", e.Version},
		{"dna", e.DNA},
		{"timestamp", e.Timestamp},
	} {
		if field.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidEntry, field.name)
		}
	}
	if e.Event == chain.GenesisEventType {
		return fmt.Errorf("%w: event %q is reserved for the genesis block", ErrInvalidEntry, e.Event)
	}
	for i, dataset := range e.DatasetHashes {
		if dataset.Path == "" {
			return fmt.Errorf("%w: dataset_hashes[%d] has no path", ErrInvalidEntry, i)
		}
		if !canonical.IsDigest(dataset.Hash) {
			return fmt.Errorf("%w: dataset_hashes[%d] hash %q is not a hex64 digest", ErrInvalidEntry, i, dataset.Hash)
		}
	}
	for name, weight := range e.FinalWeights {
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return fmt.Errorf("%w: final_weights[%q] is not finite", ErrInvalidEntry, name)
		}
	}
	if len(e.TrainingConfig) > 0 && !json.Valid(e.TrainingConfig) {
		return fmt.Errorf("%w: training_config is not valid JSON", ErrInvalidEntry)
	}
	if e.ImmutableHash != "" && !canonical.IsDigest(e.ImmutableHash) {
		return fmt.Errorf("%w: immutable_hash %q is not a hex64 digest", ErrInvalidEntry, e.ImmutableHash)
	}
	if (e.Signature == nil) != (e.SignerPublicKey == nil) {
		return fmt.Errorf("%w: signature and signer_public_key must both be set or both be null", ErrInvalidEntry)
	}
	if e.Signed() {
		if !isHex(*e.Signature, 128) {
			return fmt.Errorf("%w: signature is not 128 hex characters", ErrInvalidEntry)
		}
		if !isHex(*e.SignerPublicKey, 64) {
			return fmt.Errorf("%w: signer_public_key is not 64 hex characters", ErrInvalidEntry)
		}
	}
	return nil
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.DatasetHashes != nil {
		clone.DatasetHashes = append(make([]dna.DatasetHash, 0, len(e.DatasetHashes)), e.DatasetHashes...)
	}
	if e.FinalWeights != nil {
		clone.FinalWeights = make(map[string]float64, len(e.FinalWeights))
		for name, weight := range e.FinalWeights {
			clone.FinalWeights[name] = weight
		}
	}
	clone.TrainingConfig = append(json.RawMessage(nil), e.TrainingConfig...)
	if e.Signature != nil {
		signature := *e.Signature
		clone.Signature = &signature
	}
	if e.SignerPublicKey != nil {
		publicKey := *e.SignerPublicKey
		clone.SignerPublicKey = &publicKey
	}
	return &clone
}

func isHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
