// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// HashFile returns the hex-encoded SHA-256 of the file at path. The
// file is streamed, so memory use is constant regardless of size. A
// missing file yields an error satisfying errors.Is(err, fs.ErrNotExist).
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()
	return HashReader(file)
}

// HashReader returns the hex-encoded SHA-256 of everything read from r.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashPath hashes a dataset that may be a single file or a directory
// tree. For a file it is HashFile. For a directory it is the SHA-256
// of one line per regular file, "<hash>  <slash-separated relative
// path>\n", in byte-wise path order, so the result depends on names
// and contents but not on walk order or timestamps. Symlinks and
// other non-regular entries are skipped.
func HashPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	if !info.IsDir() {
		return HashFile(path)
	}

	var files []string
	err = filepath.WalkDir(path, func(current string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.Type().IsRegular() {
			relative, err := filepath.Rel(path, current)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(relative))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", path, err)
	}
	slices.Sort(files)

	manifest := sha256.New()
	for _, relative := range files {
		digest, err := HashFile(filepath.Join(path, filepath.FromSlash(relative)))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(manifest, "%s  %s\n", digest, relative)
	}
	return hex.EncodeToString(manifest.Sum(nil)), nil
}
