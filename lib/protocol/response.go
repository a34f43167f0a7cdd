// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Response answers one submission. Digest is 64 hex characters on
// success and empty otherwise.
type Response struct {
	Requester int64  `cbor:"requester"`
	Status    Status `cbor:"status"`
	Digest    string `cbor:"digest"`
	Info      string `cbor:"info"`
}

// Success builds a successful response.
func Success(requester int64, hexDigest string) Response {
	return Response{
		Requester: requester,
		Status:    StatusOK,
		Digest:    hexDigest,
		Info:      "ok",
	}
}

// Failure builds a failed response with bounded diagnostic text.
func Failure(requester int64, status Status, info string) Response {
	return Response{
		Requester: requester,
		Status:    status,
		Info:      Truncate(info, MaxInfo),
	}
}

// OK reports whether the response carries a digest.
func (r Response) OK() bool {
	return r.Status == StatusOK
}

// Reservation is the result of the reserve action: a staging slot
// leased to the caller until it is bound to a submission or expires.
type Reservation struct {
	Slot            int    `cbor:"slot"`
	Token           uint64 `cbor:"token"`
	ExpiresInMillis int64  `cbor:"expires_in_ms"`
}

// StagingLayout describes the staging area so that clients can map the
// same file.
type StagingLayout struct {
	Path     string `cbor:"path"`
	Mode     string `cbor:"mode"`
	SlotSize int64  `cbor:"slot_size"`
	Slots    int    `cbor:"slots"`
}

// ServerStatus is the result of the status action.
type ServerStatus struct {
	Policy        string        `cbor:"policy"`
	PoolSize      int           `cbor:"pool_size"`
	LiveWorkers   int           `cbor:"live_workers"`
	QueueDepth    int           `cbor:"queue_depth"`
	InFlight      int           `cbor:"in_flight"`
	Algorithm     string        `cbor:"algorithm"`
	Staging       StagingLayout `cbor:"staging"`
	FreeSlots     int           `cbor:"free_slots"`
	UptimeSeconds float64       `cbor:"uptime_seconds"`
}
