// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files so that readers never observe a
// partial write.
//
// [Write] writes to a temporary file in the destination directory,
// fsyncs it, renames it over the destination, and fsyncs the directory
// so the rename survives power loss. A crash at any point leaves
// either the old file or the new file, never a truncated one. Every
// persistent record in dnaledger (the ledger file, certified-directory
// records, the current-pointer marker) is written this way.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write atomically replaces path with data. The parent directory must
// exist. The temporary file is created next to path (same filesystem)
// with a name starting with "." so directory listings that skip hidden
// files never see it.
func Write(path string, data []byte, perm os.FileMode) error {
	directory := filepath.Dir(path)
	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Chmod(perm); err != nil {
		file.Close()
		return fmt.Errorf("setting permissions on temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	success = true

	SyncDir(directory)
	return nil
}

// SyncDir fsyncs a directory so that a preceding rename or create in
// it is durable. Errors are ignored: some filesystems do not support
// syncing directories, and the rename itself already succeeded.
func SyncDir(directory string) {
	handle, err := os.Open(directory)
	if err != nil {
		return
	}
	handle.Sync()
	handle.Close()
}
