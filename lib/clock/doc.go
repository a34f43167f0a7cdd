// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability.
//
// digestd reads time in two places: staging leases expire when a
// producer reserves a slot and never submits, and the status action
// reports uptime. Both take a [Clock]; production wiring passes
// [Real] and tests pass [Fake], which only moves when
// [FakeClock.Advance] is called.
package clock
