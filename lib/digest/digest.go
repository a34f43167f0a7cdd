// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"
)

// Size is the digest length in bytes for every supported algorithm.
const Size = 32

// HexLength is the length of a formatted digest.
const HexLength = 2 * Size

// Digest is a fixed-width content digest.
type Digest [Size]byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse parses a 64-character hex digest.
func Parse(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != Size {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), Size)
	}
	copy(digest[:], decoded)
	return digest, nil
}
