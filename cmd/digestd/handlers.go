// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/digestd/lib/codec"
	"github.com/bureau-foundation/digestd/lib/engine"
	"github.com/bureau-foundation/digestd/lib/protocol"
	"github.com/bureau-foundation/digestd/lib/service"
)

// handlers adapts socket actions to the engine.
type handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

func newHandlers(eng *engine.Engine, logger *slog.Logger) *handlers {
	return &handlers{engine: eng, logger: logger}
}

// register installs every action on server.
func (h *handlers) register(server *service.SocketServer) {
	server.Handle("submit", h.handleSubmit)
	server.Handle("resize", h.handleResize)
	server.Handle("reserve", h.handleReserve)
	server.Handle("release", h.handleRelease)
	server.Handle("status", h.handleStatus)
}

// resizeRequest is the "resize" action's request.
type resizeRequest struct {
	Size uint64 `cbor:"size"`
}

// releaseRequest is the "release" action's request.
type releaseRequest struct {
	Slot  int    `cbor:"slot"`
	Token uint64 `cbor:"token"`
}

// handleSubmit queues a job and waits for its Response. A job that
// fails still returns its Response as data: only transport-level
// problems become socket errors.
func (h *handlers) handleSubmit(ctx context.Context, raw []byte) (any, error) {
	var message protocol.Message
	if err := codec.Unmarshal(raw, &message); err != nil {
		return nil, fmt.Errorf("decoding submit request: %w", err)
	}
	message.Kind = protocol.KindJob

	response, err := h.engine.Dispatch(ctx, message)
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (h *handlers) handleResize(ctx context.Context, raw []byte) (any, error) {
	var request resizeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding resize request: %w", err)
	}
	if _, err := h.engine.Dispatch(ctx, protocol.Message{
		Kind: protocol.KindManagement,
		Size: request.Size,
	}); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *handlers) handleReserve(ctx context.Context, _ []byte) (any, error) {
	reservation, err := h.engine.Reserve(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrLeasesDisabled) {
			return nil, fmt.Errorf("reserve: %w; submit to slot 0", err)
		}
		return nil, err
	}
	return reservation, nil
}

func (h *handlers) handleRelease(_ context.Context, raw []byte) (any, error) {
	var request releaseRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding release request: %w", err)
	}
	if err := h.engine.CancelReservation(request.Slot, request.Token); err != nil {
		return nil, err
	}
	h.logger.Debug("reservation released", "slot", request.Slot)
	return nil, nil
}

func (h *handlers) handleStatus(_ context.Context, _ []byte) (any, error) {
	return h.engine.Status(), nil
}
