// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/digestd/lib/codec"
	"github.com/bureau-foundation/digestd/lib/digest"
)

func TestClassifyJob(t *testing.T) {
	request, err := Classify(Message{
		Kind:      KindJob,
		Requester: 311,
		Size:      1024,
		Filename:  "report.pdf",
		Encoding:  "zstd",
		Slot:      2,
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	submission, ok := request.(*Submission)
	if !ok {
		t.Fatalf("Classify returned %T, want *Submission", request)
	}
	if submission.Requester != 311 || submission.Size != 1024 || submission.Slot != 2 {
		t.Errorf("submission = %+v", submission)
	}
	if submission.Encoding != digest.EncodingZstd {
		t.Errorf("encoding = %q, want zstd", submission.Encoding)
	}
}

func TestClassifyResizeUsesSizeField(t *testing.T) {
	request, err := Classify(Message{Kind: KindManagement, Size: 5})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	resize, ok := request.(*ResizeCommand)
	if !ok {
		t.Fatalf("Classify returned %T, want *ResizeCommand", request)
	}
	if resize.Workers != 5 {
		t.Errorf("workers = %d, want 5", resize.Workers)
	}
}

func TestClassifyRejects(t *testing.T) {
	tests := []struct {
		name    string
		message Message
	}{
		{"unknown kind", Message{Kind: 3, Requester: 1}},
		{"job without requester", Message{Kind: KindJob, Size: 10}},
		{"job with unknown encoding", Message{Kind: KindJob, Requester: 1, Encoding: "gzip"}},
		{"job with negative slot", Message{Kind: KindJob, Requester: 1, Slot: -1}},
		{"resize beyond maximum", Message{Kind: KindManagement, Size: MaxPoolSize + 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Classify(test.message); err == nil {
				t.Errorf("Classify(%+v) succeeded", test.message)
			}
		})
	}

	if _, err := Classify(Message{Kind: 9}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind error = %v, want ErrUnknownKind", err)
	}
}

func TestClassifyTruncatesFilename(t *testing.T) {
	long := strings.Repeat("é", MaxFilename)
	request, err := Classify(Message{Kind: KindJob, Requester: 1, Filename: long})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	filename := request.(*Submission).Filename
	if len(filename) > MaxFilename {
		t.Errorf("filename length = %d, want <= %d", len(filename), MaxFilename)
	}
	if !strings.HasPrefix(long, filename) || strings.ContainsRune(filename, '�') {
		t.Errorf("truncation split a UTF-8 sequence")
	}
}

func TestFailureBoundsInfo(t *testing.T) {
	response := Failure(9, StatusGateFailed, strings.Repeat("x", 4*MaxInfo))
	if len(response.Info) != MaxInfo {
		t.Errorf("info length = %d, want %d", len(response.Info), MaxInfo)
	}
	if response.OK() || response.Digest != "" {
		t.Errorf("failure response = %+v", response)
	}
}

func TestResponseWireShape(t *testing.T) {
	data, err := codec.Marshal(Success(77, strings.Repeat("a", 64)))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := codec.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"requester", "status", "digest", "info"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("response missing %q field", key)
		}
	}
}

func TestStatusString(t *testing.T) {
	if StatusGateFailed.String() != "gate_failed" {
		t.Errorf("StatusGateFailed = %q", StatusGateFailed.String())
	}
	if Status(-42).String() != "status(-42)" {
		t.Errorf("unknown status = %q", Status(-42).String())
	}
}

func TestServerStatusWireShape(t *testing.T) {
	data, err := codec.Marshal(ServerStatus{
		Policy:   "fcfs",
		PoolSize: 2,
		Staging:  StagingLayout{Path: "/run/digestd/staging", Mode: "leased", SlotSize: 4096, Slots: 2},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := codec.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"policy", "pool_size", "live_workers", "queue_depth", "in_flight", "algorithm", "staging", "free_slots", "uptime_seconds"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("status missing %q field", key)
		}
	}
	layout, ok := fields["staging"].(map[string]any)
	if !ok {
		t.Fatalf("staging field is %T, want a map", fields["staging"])
	}
	for _, key := range []string{"path", "mode", "slot_size", "slots"} {
		if _, ok := layout[key]; !ok {
			t.Errorf("staging layout missing %q field", key)
		}
	}
}
