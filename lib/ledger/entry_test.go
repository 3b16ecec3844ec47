// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/dna"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

func sampleEntry() *Entry {
	return &Entry{
		Event:   EventTrainingComplete,
		Model:   "M",
		Version: "1.0",
		DNA:     "M.v1.0.aaaaaaaa.bbbbbbbb.cccccccc",
		DatasetHashes: []dna.DatasetHash{
			{Path: "data/civic.jsonl", Hash: canonical.Digest([]byte("civic"))},
		},
		FinalWeights:   map[string]float64{"a": 0.6, "b": 0.4},
		TrainingConfig: json.RawMessage(`{"epochs": 3, "lr": 0.001}`),
		Timestamp:      "2025-01-01T00:00:00Z",
	}
}

func testSigner(t *testing.T, label string) *signing.KeySigner {
	t.Helper()
	_, privateKey := signing.InsecureTestKeypair(label)
	signer, err := signing.NewKeySigner(privateKey)
	if err != nil {
		t.Fatalf("NewKeySigner: %v", err)
	}
	return signer
}

func TestImmutableHashExcludesSignatureFields(t *testing.T) {
	unsigned := sampleEntry()
	if err := unsigned.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	signed := sampleEntry()
	if err := signed.Sign(testSigner(t, "writer")); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed.ImmutableHash != unsigned.ImmutableHash {
		t.Errorf("signing changed the immutable hash: %s vs %s", signed.ImmutableHash, unsigned.ImmutableHash)
	}

	payload, err := canonical.Without(unsigned, "immutable_hash", "signature", "signer_public_key")
	if err != nil {
		t.Fatalf("Without: %v", err)
	}
	want, err := canonical.HashValue(payload)
	if err != nil {
		t.Fatalf("HashValue: %v", err)
	}
	if unsigned.ImmutableHash != want {
		t.Errorf("ImmutableHash = %s, want %s", unsigned.ImmutableHash, want)
	}
}

func TestImmutableHashIgnoresConfigFormatting(t *testing.T) {
	first := sampleEntry()
	second := sampleEntry()
	second.TrainingConfig = json.RawMessage(`{"lr":0.001,"epochs":3}`)

	a, err := first.ComputeImmutableHash()
	if err != nil {
		t.Fatalf("ComputeImmutableHash: %v", err)
	}
	b, err := second.ComputeImmutableHash()
	if err != nil {
		t.Fatalf("ComputeImmutableHash: %v", err)
	}
	if a != b {
		t.Error("key order and whitespace in training_config changed the hash")
	}
}

func TestImmutableHashMatchesFloatWrittenEntry(t *testing.T) {
	// Integral weights and exponent floats as another writer records
	// them in ledger_proof.json.
	written := `{"event":"training_complete","model":"M","version":"1.0","dna":"D",
		"dataset_hashes":[],"final_weights":{"b":0.5,"a":1.0},
		"training_config":{"lr":1e-05,"epochs":3},"timestamp":"T",
		"immutable_hash":"","signature":null,"signer_public_key":null}`
	var entry Entry
	if err := json.Unmarshal([]byte(written), &entry); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := entry.ComputeImmutableHash()
	if err != nil {
		t.Fatalf("ComputeImmutableHash: %v", err)
	}
	want := canonical.Digest([]byte(`{"dataset_hashes":[],"dna":"D","event":"training_complete",` +
		`"final_weights":{"a":1.0,"b":0.5},"model":"M","timestamp":"T",` +
		`"training_config":{"epochs":3,"lr":1e-05},"version":"1.0"}`))
	if got != want {
		t.Errorf("ComputeImmutableHash = %s, want %s", got, want)
	}
}

func TestSealRejectsWrongHash(t *testing.T) {
	entry := sampleEntry()
	entry.ImmutableHash = canonical.Digest([]byte("something else"))
	if err := entry.Seal(); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("Seal error = %v, want ErrInvalidEntry", err)
	}
}

func TestSealNormalizesEmptyCollections(t *testing.T) {
	entry := sampleEntry()
	entry.DatasetHashes = nil
	entry.FinalWeights = nil
	if err := entry.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(encoded), `"dataset_hashes":[]`) || !strings.Contains(string(encoded), `"final_weights":{}`) {
		t.Errorf("sealed entry encodes as %s, want empty collections", encoded)
	}
	if err := entry.Seal(); err != nil {
		t.Errorf("re-Seal after normalization: %v", err)
	}
}

func TestSigningPayloadIncludesImmutableHash(t *testing.T) {
	entry := sampleEntry()
	if err := entry.Sign(testSigner(t, "writer")); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	payload, err := entry.SigningPayload()
	if err != nil {
		t.Fatalf("SigningPayload: %v", err)
	}
	if !strings.Contains(string(payload), `"immutable_hash":"`+entry.ImmutableHash+`"`) {
		t.Error("signing payload does not include immutable_hash")
	}
	if strings.Contains(string(payload), "signer_public_key") || strings.Contains(string(payload), `"signature"`) {
		t.Error("signing payload includes signature fields")
	}
}

func TestVerifySignature(t *testing.T) {
	entry := sampleEntry()
	if err := entry.Sign(testSigner(t, "writer")); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	valid, err := entry.VerifySignature(signing.Ed25519Verifier{})
	if err != nil || !valid {
		t.Fatalf("VerifySignature = %v, %v; want true", valid, err)
	}

	tampered := entry.Clone()
	tampered.Model = "N"
	if valid, err := tampered.VerifySignature(signing.Ed25519Verifier{}); err != nil || valid {
		t.Errorf("tampered entry VerifySignature = %v, %v; want false", valid, err)
	}

	otherKey := entry.Clone()
	otherPublic := testSigner(t, "someone else").PublicKeyHex()
	otherKey.SignerPublicKey = &otherPublic
	if valid, err := otherKey.VerifySignature(signing.Ed25519Verifier{}); err != nil || valid {
		t.Errorf("wrong key VerifySignature = %v, %v; want false", valid, err)
	}

	malformed := entry.Clone()
	badKey := "zz"
	malformed.SignerPublicKey = &badKey
	if valid, err := malformed.VerifySignature(signing.Ed25519Verifier{}); err != nil || valid {
		t.Errorf("malformed key VerifySignature = %v, %v; want false, nil", valid, err)
	}

	if _, err := entry.VerifySignature(signing.UnavailableVerifier{}); !errors.Is(err, signing.ErrUnavailable) {
		t.Errorf("unavailable verifier error = %v, want ErrUnavailable", err)
	}
}

func TestValidate(t *testing.T) {
	signature := strings.Repeat("ab", 64)
	publicKey := strings.Repeat("cd", 32)

	tests := []struct {
		name   string
		mutate func(*Entry)
	}{
		{"missing event", func(e *Entry) { e.Event = "" }},
		{"genesis event", func(e *Entry) { e.Event = "genesis" }},
		{"missing model", func(e *Entry) { e.Model = "" }},
		{"missing dna", func(e *Entry) { e.DNA = "" }},
		{"missing timestamp", func(e *Entry) { e.Timestamp = "" }},
		{"short dataset hash", func(e *Entry) { e.DatasetHashes[0].Hash = "abc" }},
		{"dataset without path", func(e *Entry) { e.DatasetHashes[0].Path = "" }},
		{"NaN weight", func(e *Entry) { e.FinalWeights["a"] = math.NaN() }},
		{"infinite weight", func(e *Entry) { e.FinalWeights["a"] = math.Inf(1) }},
		{"bad config", func(e *Entry) { e.TrainingConfig = json.RawMessage(`{`) }},
		{"bad immutable hash", func(e *Entry) { e.ImmutableHash = "xyz" }},
		{"signature without key", func(e *Entry) { e.Signature = &signature }},
		{"key without signature", func(e *Entry) { e.SignerPublicKey = &publicKey }},
		{"short signature", func(e *Entry) {
			short := "abcd"
			e.Signature = &short
			e.SignerPublicKey = &publicKey
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			entry := sampleEntry()
			test.mutate(entry)
			if err := entry.Validate(); !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Validate error = %v, want ErrInvalidEntry", err)
			}
		})
	}

	if err := sampleEntry().Validate(); err != nil {
		t.Errorf("Validate(sample) = %v", err)
	}
}

func TestEntryJSONShape(t *testing.T) {
	entry := sampleEntry()
	if err := entry.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"event", "model", "version", "dna", "dataset_hashes", "final_weights",
		"training_config", "timestamp", "immutable_hash", "signature", "signer_public_key"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("encoded entry missing %q", key)
		}
	}
	if fields["signature"] != nil || fields["signer_public_key"] != nil {
		t.Error("unsigned entry should encode signature fields as null")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err      error
		want     Kind
		expected bool
	}{
		{nil, KindNone, false},
		{ErrDuplicateEntry, KindDuplicate, true},
		{errors.Join(errors.New("context"), ErrNotFound), KindNotFound, true},
		{ErrInvalidEntry, KindInvalid, true},
		{&NetworkError{Op: "GET", URL: "http://x", Err: errors.New("refused")}, KindNetwork, false},
		{&RemoteError{StatusCode: 500}, KindRemote, false},
		{signing.ErrUnavailable, KindUnavailable, false},
		{errors.New("disk full"), KindIO, false},
	}
	for _, test := range tests {
		if got := KindOf(test.err); got != test.want {
			t.Errorf("KindOf(%v) = %v, want %v", test.err, got, test.want)
		}
		if got := KindOf(test.err).Expected(); got != test.expected {
			t.Errorf("KindOf(%v).Expected() = %v, want %v", test.err, got, test.expected)
		}
	}
}
