// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// digestd server and its clients.
//
// Every message on the service socket (job submissions, resize
// commands, slot reservations, status queries, and their responses)
// is a single CBOR data item. The encoder uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items, so the same logical message
// always produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Wire types carry `cbor` struct tags. Types that are also printed by
// digestctl as JSON carry `json` tags instead; fxamacker/cbor reads
// `json` tags when no `cbor` tag is present.
package codec
