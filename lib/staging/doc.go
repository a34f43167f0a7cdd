// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package staging provides the byte regions submitters use to hand
// payloads to digest workers, and the gates that serialize access to
// them.
//
// An [Area] is a fixed number of slots of fixed capacity. [MappedArea]
// backs the slots with one MAP_SHARED file mapping so a client process
// and the server see the same bytes; [MemoryArea] keeps them on the Go
// heap for tests and single-process use.
//
// Every slot has a [Gate]. A gate admits one holder at a time. The
// mapped area's gates are flock(2) locks on per-slot lock files next to
// the staging file, so they exclude holders in other processes too and
// are released by the kernel if a holder dies.
//
// A gate protects a write or a read, not the lifetime of a job. With a
// single slot a second producer can overwrite the slot after the first
// producer has released the gate but before a worker has read it.
// [Leases] closes that window: a producer reserves a slot, the server
// binds the reservation to the submitted job, and the slot only returns
// to the free set once the worker is done with it.
package staging
