// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command digestctl is the digestd client.
//
//	digestctl hash FILE [--encoding none|zstd|lz4] [--requester N]
//	digestctl resize N
//	digestctl status
//
// hash stages FILE in the server's staging area and prints its digest:
// "<hex>  <file>" when stdout is not a terminal, a labelled form when
// it is. It exits 0 on success, 2 when the server (or the local size
// check) refuses the job, and 1 on any other error.
package main
