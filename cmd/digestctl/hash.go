// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/digestd/lib/config"
	"github.com/bureau-foundation/digestd/lib/digest"
	"github.com/bureau-foundation/digestd/lib/process"
	"github.com/bureau-foundation/digestd/lib/protocol"
	"github.com/bureau-foundation/digestd/lib/service"
	"github.com/bureau-foundation/digestd/lib/staging"
)

// refused is the exit code for a job the server answered with a
// non-zero status.
const refused = 2

func (c *cli) hash(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("hash", pflag.ContinueOnError)
	var (
		encodingName string
		requester    int64
	)
	flags.StringVar(&encodingName, "encoding", string(digest.EncodingNone), "stage the file as none, zstd or lz4")
	flags.Int64Var(&requester, "requester", int64(os.Getpid()), "requester identity the response is addressed to")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("usage: digestctl hash FILE [--encoding none|zstd|lz4] [--requester N]")
	}
	path := flags.Arg(0)

	encoding, err := digest.ParseEncoding(encodingName)
	if err != nil {
		return err
	}
	if requester == 0 {
		return errors.New("--requester must be non-zero")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	staged, err := digest.Encode(content, encoding)
	if err != nil {
		return err
	}

	var status protocol.ServerStatus
	if err := c.client.Call(ctx, "status", nil, &status); err != nil {
		return err
	}
	layout := status.Staging
	if int64(len(staged)) > layout.SlotSize {
		return &process.ExitError{Code: refused, Err: fmt.Errorf("%s: %s staged exceeds the %s staging capacity",
			path, humanize.IBytes(uint64(len(staged))), humanize.IBytes(uint64(layout.SlotSize)))}
	}

	response, err := c.submit(ctx, layout, staged, map[string]any{
		"requester": requester,
		"size":      uint64(len(staged)),
		"filename":  path,
		"encoding":  string(encoding),
	})
	if err != nil {
		return err
	}
	if !response.OK() {
		return &process.ExitError{Code: refused, Err: fmt.Errorf("%s: %s: %s", path, response.Status, response.Info)}
	}

	if c.terminal {
		fmt.Fprintf(c.stdout, "file:   %s\ndigest: %s (%s)\n", path, response.Digest, status.Algorithm)
	} else {
		fmt.Fprintf(c.stdout, "%s  %s\n", response.Digest, path)
	}
	return nil
}

// submit stages payload and sends the submission. The slot gate is held
// from the write until the request is on the wire, then released
// before waiting for the response. The server acknowledges nothing
// before the response, so the gate can be free before the dispatcher
// has queued the job. In shared mode another client may overwrite the
// slot in that window and the job digests whatever the slot holds when
// a worker reads it. In leased mode the lease keeps the slot until the
// job finishes. A reservation that never reaches the server is handed
// back.
func (c *cli) submit(ctx context.Context, layout protocol.StagingLayout, payload []byte, fields map[string]any) (protocol.Response, error) {
	var response protocol.Response

	slot := 0
	submitted := false
	if layout.Mode == config.StagingLeased {
		var reservation protocol.Reservation
		if err := c.client.Call(ctx, "reserve", nil, &reservation); err != nil {
			return response, fmt.Errorf("reserving a staging slot: %w", err)
		}
		slot = reservation.Slot
		fields["slot"] = reservation.Slot
		fields["lease_token"] = reservation.Token
		defer func() {
			if !submitted {
				c.client.Call(context.WithoutCancel(ctx), "release", map[string]any{
					"slot":  reservation.Slot,
					"token": reservation.Token,
				}, nil)
			}
		}()
	}

	pending, err := c.stage(ctx, layout, slot, payload, fields)
	if err != nil {
		return response, err
	}
	submitted = true
	return response, pending.Wait(ctx, &response)
}

// stage writes payload into slot under its gate and sends the submit
// request. The gate is released on return, once the request is written,
// which is not a signal that the job is queued.
func (c *cli) stage(ctx context.Context, layout protocol.StagingLayout, slot int, payload []byte, fields map[string]any) (*service.PendingCall, error) {
	area, err := staging.OpenMapped(layout.Path, layout.Slots, layout.SlotSize)
	if err != nil {
		return nil, err
	}
	defer area.Close()

	gate, err := area.Gate(slot)
	if err != nil {
		return nil, err
	}
	if err := gate.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquiring staging gate: %w", err)
	}
	defer gate.Release()

	region, err := area.Slot(slot)
	if err != nil {
		return nil, err
	}
	copy(region, payload)
	return c.client.Send(ctx, "submit", fields)
}
