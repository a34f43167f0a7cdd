// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for digestd packages.
//
// [SocketDir] creates a short temporary directory for Unix domain
// sockets and staging files; sun_path is limited to 108 bytes and
// t.TempDir() paths can exceed it.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that tests exercising blocking queues and workers fail
// instead of hanging.
//
// [UniqueID] hands out monotonically increasing identifiers, used for
// requester identities that must not collide across tests.
package testutil
