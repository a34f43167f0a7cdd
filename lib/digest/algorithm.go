// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a digest function. All supported algorithms produce
// 32-byte output.
type Algorithm string

const (
	// SHA256 is the default and the algorithm clients expect unless
	// the server advertises otherwise in its status.
	SHA256 Algorithm = "sha256"

	// BLAKE3 is BLAKE3 with its default 256-bit output.
	BLAKE3 Algorithm = "blake3"

	// BLAKE2b is BLAKE2b-256, unkeyed.
	BLAKE2b Algorithm = "blake2b"
)

// Algorithms lists the supported algorithms in display order.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, BLAKE3, BLAKE2b}
}

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch algorithm := Algorithm(name); algorithm {
	case SHA256, BLAKE3, BLAKE2b:
		return algorithm, nil
	default:
		return "", fmt.Errorf("unknown digest algorithm %q (supported: sha256, blake3, blake2b)", name)
	}
}

// newHash constructs a fresh hasher. This is the initialize stage.
func newHash(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	case BLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", algorithm)
	}
}
