// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package modeldir

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/dnaledger/lib/atomicfile"
)

// CurrentName is the pointer's file name under the models root.
const CurrentName = "current"

// Pointer updates the current pointer of a models root.
type Pointer struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// symlink creates symbolic links. Tests replace it to simulate a
	// filesystem without symlink support.
	symlink func(target, link string) error
}

// Update atomically points root/current at the certified directory
// root/name, which must exist. The symlink target is the bare name, so
// the models root can be moved or mounted elsewhere.
func (p *Pointer) Update(root, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	target := filepath.Join(root, name)
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, target)
		}
		return fmt.Errorf("modeldir: checking %s: %w", target, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("modeldir: %s is not a directory", target)
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	symlink := p.symlink
	if symlink == nil {
		symlink = os.Symlink
	}

	currentPath := filepath.Join(root, CurrentName)
	temporaryPath := currentPath + ".new"
	if err := os.Remove(temporaryPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("modeldir: removing stale %s: %w", temporaryPath, err)
	}

	if err := symlink(name, temporaryPath); err != nil {
		logger.Warn("symlink unavailable, writing current pointer as a marker file",
			"root", root,
			"target", name,
			"error", err,
		)
		if err := atomicfile.Write(currentPath, []byte(name+"\n"), 0o644); err != nil {
			return fmt.Errorf("modeldir: writing current marker: %w", err)
		}
		return nil
	}
	if err := os.Rename(temporaryPath, currentPath); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("modeldir: replacing current pointer: %w", err)
	}
	atomicfile.SyncDir(root)
	return nil
}

// UpdateCurrent is Update with a default Pointer.
func UpdateCurrent(root, name string) error {
	return (&Pointer{}).Update(root, name)
}

// ReadCurrent returns the directory name root/current refers to,
// whether it is a symlink or a marker file. It fails with ErrNoCurrent
// when there is no pointer and ErrMissingArtifact when the pointer
// names a directory that no longer exists.
func ReadCurrent(root string) (string, error) {
	currentPath := filepath.Join(root, CurrentName)
	info, err := os.Lstat(currentPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoCurrent, root)
		}
		return "", fmt.Errorf("modeldir: reading %s: %w", currentPath, err)
	}

	var name string
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		link, err := os.Readlink(currentPath)
		if err != nil {
			return "", fmt.Errorf("modeldir: reading %s: %w", currentPath, err)
		}
		name = link
		if filepath.IsAbs(link) {
			if filepath.Dir(link) != filepath.Clean(root) {
				return "", fmt.Errorf("modeldir: current points outside %s: %s", root, link)
			}
			name = filepath.Base(link)
		}
	case info.Mode().IsRegular():
		data, err := os.ReadFile(currentPath)
		if err != nil {
			return "", fmt.Errorf("modeldir: reading %s: %w", currentPath, err)
		}
		name = strings.TrimSpace(string(data))
	default:
		return "", fmt.Errorf("modeldir: %s is neither a symlink nor a marker file", currentPath)
	}

	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("modeldir: current pointer: %w", err)
	}
	if info, err := os.Stat(filepath.Join(root, name)); err != nil || !info.IsDir() {
		return name, fmt.Errorf("%w: current points at %s", ErrMissingArtifact, name)
	}
	return name, nil
}
