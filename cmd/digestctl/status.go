// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/digestd/lib/config"
	"github.com/bureau-foundation/digestd/lib/protocol"
)

func (c *cli) resize(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: digestctl resize N")
	}
	workers, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || workers == 0 {
		return fmt.Errorf("pool size must be a positive integer, got %q", args[0])
	}
	if workers > protocol.MaxPoolSize {
		return fmt.Errorf("pool size %d exceeds maximum %d", workers, protocol.MaxPoolSize)
	}
	return c.client.Call(ctx, "resize", map[string]any{"size": workers}, nil)
}

func (c *cli) status(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: digestctl status")
	}
	var status protocol.ServerStatus
	if err := c.client.Call(ctx, "status", nil, &status); err != nil {
		return err
	}

	uptime := (time.Duration(status.UptimeSeconds * float64(time.Second))).Round(time.Second)
	writer := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "policy\t%s\n", status.Policy)
	fmt.Fprintf(writer, "workers\t%d (%d live)\n", status.PoolSize, status.LiveWorkers)
	fmt.Fprintf(writer, "queued\t%d\n", status.QueueDepth)
	fmt.Fprintf(writer, "in flight\t%d\n", status.InFlight)
	fmt.Fprintf(writer, "algorithm\t%s\n", status.Algorithm)
	fmt.Fprintf(writer, "staging\t%s (%s, %d x %s)\n", status.Staging.Path, status.Staging.Mode,
		status.Staging.Slots, humanize.IBytes(uint64(status.Staging.SlotSize)))
	if status.Staging.Mode == config.StagingLeased {
		fmt.Fprintf(writer, "free slots\t%d\n", status.FreeSlots)
	}
	fmt.Fprintf(writer, "uptime\t%s\n", uptime)
	return writer.Flush()
}
