// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the
// ledger, the certification path and the command-line tools.
//
// Ledger records embed their creation time, and that time feeds the
// block hash. A test that wants to assert an exact hash therefore has
// to pin the clock: construct components with [Fake] and move time
// with [FakeClock.Advance], [FakeClock.Set] or [FakeClock.AutoStep].
// [Timestamp] is the single place that decides how a time is written
// into a record.
package clock
