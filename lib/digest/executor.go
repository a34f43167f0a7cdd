// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
)

// Stage identifies the digest step that failed.
type Stage string

const (
	StageInitialize Stage = "initialize"
	StageUpdate     Stage = "update"
	StageFinalize   Stage = "finalize"
)

// StageError reports a failure inside one digest stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("digest %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrOutOfRange is returned when the declared length does not fit the
// region handed to Compute. Callers validate capacity before calling,
// so this indicates a declared length that slipped past that check.
var ErrOutOfRange = errors.New("declared length exceeds staging region")

// Executor computes digests with one configured algorithm. It holds no
// per-call state and is safe for concurrent use.
type Executor struct {
	algorithm Algorithm
}

// NewExecutor returns an executor for algorithm.
func NewExecutor(algorithm Algorithm) (*Executor, error) {
	if _, err := ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	return &Executor{algorithm: algorithm}, nil
}

// Algorithm returns the configured algorithm.
func (e *Executor) Algorithm() Algorithm {
	return e.algorithm
}

// Compute digests the first length bytes of region, decoding them
// with encoding first. A zero length hashes the empty input whatever
// the encoding.
func (e *Executor) Compute(region []byte, length int64, encoding Encoding) (Digest, error) {
	var result Digest

	if length < 0 || length > int64(len(region)) {
		return result, fmt.Errorf("%w: length %d, region %d", ErrOutOfRange, length, len(region))
	}

	hasher, err := newHash(e.algorithm)
	if err != nil {
		return result, &StageError{Stage: StageInitialize, Err: err}
	}

	if length > 0 {
		staged := bytes.NewReader(region[:length])
		decoded, closeDecoder, err := newDecoder(staged, encoding)
		if err != nil {
			return result, &StageError{Stage: StageInitialize, Err: err}
		}
		err = copyGuarded(hasher, decoded)
		closeDecoder()
		if err != nil {
			return result, &StageError{Stage: StageUpdate, Err: err}
		}
	}

	sum := hasher.Sum(nil)
	if len(sum) != Size {
		return result, &StageError{
			Stage: StageFinalize,
			Err:   fmt.Errorf("%s produced %d bytes, want %d", e.algorithm, len(sum), Size),
		}
	}
	copy(result[:], sum)
	return result, nil
}

// copyGuarded streams source into destination. The region may be a
// shared mapping whose backing file was truncated by another process;
// the resulting SIGBUS becomes an error instead of killing the worker.
func copyGuarded(destination io.Writer, source io.Reader) (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("fault reading staging region: %v", r)
		}
	}()

	_, err = io.Copy(destination, source)
	return err
}
