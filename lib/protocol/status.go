// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// Status is the result code carried in a Response. Values are part of
// the wire protocol and never change meaning.
type Status int

const (
	StatusOK             Status = 0
	StatusInitFailed     Status = -1
	StatusTooLarge       Status = -2
	StatusUpdateFailed   Status = -3
	StatusFinalizeFailed Status = -4
	StatusGateFailed     Status = -5
	StatusLeaseInvalid   Status = -6
	StatusRejected       Status = -7
	StatusCancelled      Status = -8
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInitFailed:
		return "init_failed"
	case StatusTooLarge:
		return "too_large"
	case StatusUpdateFailed:
		return "update_failed"
	case StatusFinalizeFailed:
		return "finalize_failed"
	case StatusGateFailed:
		return "gate_failed"
	case StatusLeaseInvalid:
		return "lease_invalid"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Statuses lists every defined status, used to pre-populate metric
// label sets.
func Statuses() []Status {
	return []Status{
		StatusOK, StatusInitFailed, StatusTooLarge, StatusUpdateFailed,
		StatusFinalizeFailed, StatusGateFailed, StatusLeaseInvalid,
		StatusRejected, StatusCancelled,
	}
}
