// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the transport scaffolding shared by digestd
// and its clients:
//
//   - Socket server: CBOR request-response over a Unix socket, one
//     request per connection, with action dispatch, connection
//     timeouts, and graceful shutdown.
//   - Socket client: per-call connections, with the request write and
//     the response read available as separate steps for callers that
//     must do work between them.
//   - HTTP server: TCP listener lifecycle for the metrics endpoint.
//   - Logger construction from configured level and format.
//
// Binaries compose these in their own main() function. The package
// provides building blocks, not a runtime.
package service
