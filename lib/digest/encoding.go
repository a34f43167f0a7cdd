// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoding identifies how a payload was written into the staging
// region.
type Encoding string

const (
	// EncodingNone stages the file bytes as-is. The empty string is
	// treated the same way.
	EncodingNone Encoding = "none"

	// EncodingZstd stages a zstd stream.
	EncodingZstd Encoding = "zstd"

	// EncodingLZ4 stages an LZ4 frame.
	EncodingLZ4 Encoding = "lz4"
)

// ParseEncoding validates an encoding name. The empty string parses as
// EncodingNone.
func ParseEncoding(name string) (Encoding, error) {
	switch encoding := Encoding(name); encoding {
	case "", EncodingNone:
		return EncodingNone, nil
	case EncodingZstd, EncodingLZ4:
		return encoding, nil
	default:
		return "", fmt.Errorf("unknown payload encoding %q (supported: none, zstd, lz4)", name)
	}
}

// Encode prepares content for staging with the given encoding. Empty
// content stays empty for every encoding.
func Encode(content []byte, encoding Encoding) ([]byte, error) {
	if len(content) == 0 {
		return nil, nil
	}

	switch encoding {
	case "", EncodingNone:
		return content, nil

	case EncodingZstd:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(content, nil), nil

	case EncodingLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(content); err != nil {
			return nil, fmt.Errorf("lz4 encode: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 encode: %w", err)
		}
		return buffer.Bytes(), nil

	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}

// newDecoder wraps staged bytes in a reader that yields the decoded
// content. The returned close function must be called once reading is
// done.
func newDecoder(staged io.Reader, encoding Encoding) (io.Reader, func(), error) {
	switch encoding {
	case "", EncodingNone:
		return staged, func() {}, nil

	case EncodingZstd:
		decoder, err := zstd.NewReader(staged, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil

	case EncodingLZ4:
		return lz4.NewReader(staged), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}
