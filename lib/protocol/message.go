// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/bureau-foundation/digestd/lib/digest"
)

// Kind is the message-kind tag.
type Kind int

const (
	KindJob        Kind = 1
	KindManagement Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindManagement:
		return "management"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	// MaxFilename bounds the diagnostic filename carried by a job.
	MaxFilename = 256

	// MaxInfo bounds the diagnostic text carried by a response.
	MaxInfo = 128

	// MaxPoolSize bounds the worker count a resize command may ask
	// for.
	MaxPoolSize = 1024
)

// Message is an inbound message as received by the dispatcher. For a
// management message Size is the desired worker count.
type Message struct {
	Kind       Kind   `cbor:"kind"`
	Requester  int64  `cbor:"requester,omitempty"`
	Size       uint64 `cbor:"size"`
	Filename   string `cbor:"filename,omitempty"`
	Encoding   string `cbor:"encoding,omitempty"`
	Slot       int    `cbor:"slot,omitempty"`
	LeaseToken uint64 `cbor:"lease_token,omitempty"`
}

// Request is a classified inbound message: either *Submission or
// *ResizeCommand.
type Request interface {
	isRequest()
}

// Submission asks for the digest of a staged payload.
type Submission struct {
	Requester  int64
	Size       uint64
	Filename   string
	Encoding   digest.Encoding
	Slot       int
	LeaseToken uint64
}

// ResizeCommand asks the pool to grow to Workers.
type ResizeCommand struct {
	Workers int
}

func (*Submission) isRequest()    {}
func (*ResizeCommand) isRequest() {}

// ErrUnknownKind is returned by Classify for a kind tag it does not
// recognize.
var ErrUnknownKind = errors.New("unknown message kind")

// Classify turns an inbound message into exactly one Request.
func Classify(message Message) (Request, error) {
	switch message.Kind {
	case KindJob:
		if message.Requester == 0 {
			return nil, fmt.Errorf("job submission without requester identity")
		}
		encoding, err := digest.ParseEncoding(message.Encoding)
		if err != nil {
			return nil, err
		}
		if message.Slot < 0 {
			return nil, fmt.Errorf("negative staging slot %d", message.Slot)
		}
		return &Submission{
			Requester:  message.Requester,
			Size:       message.Size,
			Filename:   Truncate(message.Filename, MaxFilename),
			Encoding:   encoding,
			Slot:       message.Slot,
			LeaseToken: message.LeaseToken,
		}, nil

	case KindManagement:
		if message.Size > MaxPoolSize {
			return nil, fmt.Errorf("requested pool size %d exceeds maximum %d", message.Size, MaxPoolSize)
		}
		return &ResizeCommand{Workers: int(message.Size)}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(message.Kind))
	}
}

// Truncate shortens s to at most limit bytes without splitting a UTF-8
// sequence.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
