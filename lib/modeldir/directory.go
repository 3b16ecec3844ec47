// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package modeldir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/dnaledger/lib/dna"
)

// Errors returned by directory operations.
var (
	// ErrMissingArtifact is returned when a required file or
	// directory does not exist. The wrapping message names it.
	ErrMissingArtifact = errors.New("modeldir: missing artifact")

	// ErrSealed is returned for writes into a directory whose
	// metadata status is completed.
	ErrSealed = errors.New("modeldir: directory is sealed")

	// ErrInvalidName is returned for a directory name that is not a
	// single path element.
	ErrInvalidName = errors.New("modeldir: invalid directory name")

	// ErrNoCurrent is returned by ReadCurrent when no pointer exists.
	ErrNoCurrent = errors.New("modeldir: no current pointer")
)

// GenerateDirectoryName returns the content-derived directory name for
// inputs. It is a pure function.
func GenerateDirectoryName(inputs dna.DirectoryInputs) (string, error) {
	return dna.DirectoryName(inputs)
}

// ValidateName checks that name can be used as a directory name
// directly under a models root.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case name == CurrentName, strings.HasPrefix(name, CurrentName+"."), name == ProofIndexFileName:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

// Create makes the certified directory root/name and returns its path.
// It is idempotent: an existing directory is not an error.
func Create(root, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("modeldir: creating root %s: %w", root, err)
	}
	path := filepath.Join(root, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("modeldir: creating %s: %w", path, err)
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			return "", fmt.Errorf("modeldir: checking %s: %w", path, statErr)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("modeldir: %s exists and is not a directory", path)
		}
	}
	return path, nil
}
