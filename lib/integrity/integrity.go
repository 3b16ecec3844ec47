// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/dnaledger/lib/binhash"
	"github.com/bureau-foundation/dnaledger/lib/canonical"
	"github.com/bureau-foundation/dnaledger/lib/dna"
	"github.com/bureau-foundation/dnaledger/lib/ledger"
	"github.com/bureau-foundation/dnaledger/lib/modeldir"
	"github.com/bureau-foundation/dnaledger/lib/signing"
)

// Status is the verdict for one source.
type Status string

// DNA statuses.
const (
	DNAValid   Status = "VALID"
	DNAInvalid Status = "INVALID"
)

// Ledger statuses.
const (
	LedgerSynced     Status = "SYNCED"
	LedgerMismatch   Status = "MISMATCH"
	LedgerUnsigned   Status = "UNSIGNED"
	LedgerUnverified Status = "UNVERIFIED"
)

// Dataset statuses.
const (
	DatasetsUnchanged Status = "UNCHANGED"
	DatasetsModified  Status = "MODIFIED"
	DatasetsMissing   Status = "MISSING"
)

// Overall verdicts.
const (
	OverallValid   Status = "VALID"
	OverallInvalid Status = "INVALID"
)

// Unknown means a source was not checked.
const Unknown Status = "UNKNOWN"

// Report is the result of verifying one model directory.
type Report struct {
	ModelDirectory string   `json:"model_directory"`
	DNA            Status   `json:"dna"`
	Ledger         Status   `json:"ledger"`
	Datasets       Status   `json:"datasets"`
	Overall        Status   `json:"overall"`
	Details        []string `json:"details"`
}

// Valid reports whether the overall verdict is VALID.
func (r *Report) Valid() bool {
	return r.Overall == OverallValid
}

// WriteSummary writes a short human-readable form of the report.
func (r *Report) WriteSummary(w io.Writer) error {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "%s: %s\n", r.ModelDirectory, r.Overall)
	fmt.Fprintf(&buffer, "  dna:      %s\n", r.DNA)
	fmt.Fprintf(&buffer, "  ledger:   %s\n", r.Ledger)
	fmt.Fprintf(&buffer, "  datasets: %s\n", r.Datasets)
	for _, detail := range r.Details {
		fmt.Fprintf(&buffer, "  - %s\n", detail)
	}
	_, err := w.Write(buffer.Bytes())
	return err
}

func (r *Report) detail(format string, args ...any) {
	r.Details = append(r.Details, fmt.Sprintf(format, args...))
}

// finish computes the overall verdict from the per-source statuses.
func (r *Report) finish() *Report {
	ledgerAcceptable := r.Ledger == LedgerSynced || r.Ledger == LedgerUnsigned || r.Ledger == LedgerUnverified
	datasetsAcceptable := r.Datasets == DatasetsUnchanged || r.Datasets == Unknown
	if r.DNA == DNAValid && ledgerAcceptable && datasetsAcceptable {
		r.Overall = OverallValid
	} else {
		r.Overall = OverallInvalid
	}
	return r
}

// Verifier checks model directories. The zero value verifies
// signatures with Ed25519, resolves relative dataset paths against the
// working directory, and does not consult a ledger service.
type Verifier struct {
	// DatasetRoot is the base for relative dataset paths recorded in
	// ledger entries.
	DatasetRoot string

	// Ledger, when set, is asked whether it holds the directory's
	// entry and whether that entry still verifies.
	Ledger ledger.Client

	// SigningVerifier checks entry signatures. Defaults to
	// signing.Ed25519Verifier.
	SigningVerifier signing.Verifier

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Verify checks the model directory at dir. The returned error is
// non-nil only when ctx is done; every finding about the directory is
// reported in the Report.
func (v *Verifier) Verify(ctx context.Context, dir string) (*Report, error) {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}
	report := &Report{
		ModelDirectory: dir,
		DNA:            Unknown,
		Ledger:         Unknown,
		Datasets:       Unknown,
		Details:        []string{},
	}

	v.check(ctx, dir, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.finish()

	logger.Info("model integrity verified",
		"directory", dir,
		"dna", report.DNA,
		"ledger", report.Ledger,
		"datasets", report.Datasets,
		"overall", report.Overall,
	)
	return report, nil
}

func (v *Verifier) check(ctx context.Context, dir string, report *Report) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		report.detail("model directory %s does not exist", dir)
		return
	}

	dnaFile, dnaErr := modeldir.ReadDNAFile(dir)
	proof, proofErr := modeldir.ReadLedgerProof(dir)
	if dnaErr != nil || proofErr != nil {
		for _, record := range []struct {
			name string
			err  error
		}{
			{modeldir.DNAFileName, dnaErr},
			{modeldir.LedgerProofFileName, proofErr},
		} {
			switch {
			case record.err == nil:
			case errors.Is(record.err, modeldir.ErrMissingArtifact):
				report.detail("missing artifact: %s", record.name)
			default:
				report.detail("unreadable artifact %s: %v", record.name, record.err)
			}
		}
		return
	}

	if !v.checkDNA(dnaFile, proof, report) {
		return
	}
	if !v.checkLedger(ctx, proof, report) {
		return
	}
	v.checkDatasets(proof.DatasetHashes, report)
}

func (v *Verifier) checkDNA(dnaFile *modeldir.DNAFile, proof *ledger.Entry, report *Report) bool {
	if dnaFile.DNA != proof.DNA {
		report.DNA = DNAInvalid
		report.detail("dna mismatch: %s records %q, %s records %q",
			modeldir.DNAFileName, dnaFile.DNA, modeldir.LedgerProofFileName, proof.DNA)
		return false
	}

	// The DNA file carries the inputs its fingerprint was built from.
	rebuilt, err := dna.Build(dna.Metadata{
		Model:      dnaFile.Model,
		Version:    dnaFile.Version,
		Weights:    dnaFile.FinalWeights,
		Categories: dnaFile.DatasetCategories,
		Timestamp:  dnaFile.Timestamp,
	})
	if err != nil {
		report.DNA = DNAInvalid
		report.detail("dna cannot be rebuilt from %s: %v", modeldir.DNAFileName, err)
		return false
	}
	if rebuilt != dnaFile.DNA {
		report.DNA = DNAInvalid
		report.detail("dna mismatch: %s records %q, its inputs give %q", modeldir.DNAFileName, dnaFile.DNA, rebuilt)
		return false
	}

	report.DNA = DNAValid
	return true
}

func (v *Verifier) checkLedger(ctx context.Context, proof *ledger.Entry, report *Report) bool {
	computed, err := proof.ComputeImmutableHash()
	if err != nil {
		report.Ledger = LedgerMismatch
		report.detail("ledger proof cannot be hashed: %v", err)
		return false
	}
	if computed != proof.ImmutableHash {
		report.Ledger = LedgerMismatch
		report.detail("immutable_hash mismatch: recorded %s, content hashes to %s", proof.ImmutableHash, computed)
		return false
	}

	switch {
	case proof.Signature == nil && proof.SignerPublicKey == nil:
		report.Ledger = LedgerUnsigned
		report.detail("ledger proof is unsigned")
	case !proof.Signed():
		report.Ledger = LedgerMismatch
		report.detail("ledger proof has a signature or a public key but not both")
		return false
	default:
		verifier := v.SigningVerifier
		if verifier == nil {
			verifier = signing.Ed25519Verifier{}
		}
		valid, err := proof.VerifySignature(verifier)
		switch {
		case errors.Is(err, signing.ErrUnavailable):
			report.Ledger = LedgerUnverified
			report.detail("signature not checked: %v", err)
		case err != nil:
			report.Ledger = LedgerMismatch
			report.detail("signature check failed: %v", err)
			return false
		case !valid:
			report.Ledger = LedgerMismatch
			report.detail("signature does not verify")
			return false
		default:
			report.Ledger = LedgerSynced
		}
	}

	if v.Ledger != nil {
		return v.crossCheck(ctx, proof, report)
	}
	return true
}

// crossCheck asks the ledger service for the entry and compares it
// with the proof file.
func (v *Verifier) crossCheck(ctx context.Context, proof *ledger.Entry, report *Report) bool {
	recorded, err := v.Ledger.ReadEntry(ctx, proof.ImmutableHash)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindNotFound {
			report.Ledger = LedgerMismatch
			report.detail("ledger has no entry %s", proof.ImmutableHash)
			return false
		}
		report.Ledger = LedgerUnverified
		report.detail("ledger not consulted: %v", err)
		return true
	}

	same, err := sameEntry(proof, recorded)
	if err != nil || !same {
		report.Ledger = LedgerMismatch
		report.detail("ledger entry %s differs from %s", proof.ImmutableHash, modeldir.LedgerProofFileName)
		return false
	}

	valid, err := v.Ledger.VerifyEntry(ctx, proof.ImmutableHash)
	switch {
	case err != nil:
		report.Ledger = LedgerUnverified
		report.detail("ledger verification not available: %v", err)
	case !valid:
		report.Ledger = LedgerMismatch
		report.detail("ledger reports entry %s as invalid", proof.ImmutableHash)
		return false
	}
	return true
}

func sameEntry(a, b *ledger.Entry) (bool, error) {
	first, err := canonical.Marshal(a)
	if err != nil {
		return false, err
	}
	second, err := canonical.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(first, second), nil
}

func (v *Verifier) checkDatasets(datasets []dna.DatasetHash, report *Report) {
	if len(datasets) == 0 {
		report.Datasets = Unknown
		report.detail("no dataset hashes recorded")
		return
	}

	var missing, modified int
	for _, dataset := range datasets {
		path := dataset.Path
		if !filepath.IsAbs(path) && v.DatasetRoot != "" {
			path = filepath.Join(v.DatasetRoot, path)
		}
		hash, err := binhash.HashPath(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			missing++
			report.detail("missing dataset: %s", dataset.Path)
		case err != nil:
			missing++
			report.detail("unreadable dataset %s: %v", dataset.Path, err)
		case hash != dataset.Hash:
			modified++
			report.detail("modified dataset: %s", dataset.Path)
		}
	}

	switch {
	case missing > 0:
		report.Datasets = DatasetsMissing
	case modified > 0:
		report.Datasets = DatasetsModified
	default:
		report.Datasets = DatasetsUnchanged
	}
}
