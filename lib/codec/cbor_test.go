// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// submission mirrors the shape of a job submission on the socket.
type submission struct {
	Action    string `cbor:"action"`
	Requester int64  `cbor:"requester"`
	Size      uint64 `cbor:"size"`
	Filename  string `cbor:"filename,omitempty"`
}

// statusView uses json tags, relying on the fallback.
type statusView struct {
	Policy  string `json:"policy"`
	Workers int    `json:"workers"`
}

func TestMarshalDeterministic(t *testing.T) {
	message := submission{Action: "submit", Requester: 4242, Size: 3, Filename: "abc.txt"}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(message)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	messages := []submission{
		{Action: "submit", Requester: 1, Size: 0},
		{Action: "submit", Requester: 2, Size: 4 << 20, Filename: "big.bin"},
		{Action: "resize", Size: 5},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range messages {
		var got submission
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got != want {
			t.Errorf("message %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(statusView{Policy: "sjf", Workers: 5})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var generic map[string]any
	if err := Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal into map: %v", err)
	}
	if generic["policy"] != "sjf" {
		t.Errorf("policy = %v, want sjf", generic["policy"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var message submission
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &message); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	data, err := Marshal(submission{Action: "submit", Requester: 7, Size: 12})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw RawMessage
	if err := Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := Unmarshal(raw, &header); err != nil {
		t.Fatalf("Unmarshal header: %v", err)
	}
	if header.Action != "submit" {
		t.Errorf("action = %q, want submit", header.Action)
	}
}
