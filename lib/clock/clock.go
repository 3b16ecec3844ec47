// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for everything that stamps a record: block
// timestamps, ledger entry timestamps, certified-directory metadata,
// quarantine backup names. Production code injects Real(); tests inject
// Fake() so that stamped records hash to known values.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Timestamp formats t the way ledger records carry time: RFC 3339 in
// UTC with nanosecond precision and trailing zeros trimmed.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// BackupStamp formats t for use inside a file name: UTC, no colons.
func BackupStamp(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z")
}
