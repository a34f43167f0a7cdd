// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/digestd/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// service socket. It covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for a response when
// the context carries no deadline. A submit waits behind the queue, so
// this is generous.
const responseReadTimeout = 10 * time.Minute

// maxResponseSize is the maximum size of a single CBOR response.
const maxResponseSize = 64 * 1024

// ServiceError is returned by Call and Wait when the server responds
// with ok=false. It wraps the server's error message and the action
// that failed.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// ServiceClient sends CBOR requests to a digestd socket. Each call
// opens a new connection, matching the server's one-request-per-
// connection model.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient creates a client for the socket at socketPath.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// SocketPath returns the socket the client dials.
func (c *ServiceClient) SocketPath() string { return c.socketPath }

// Call sends a request and decodes the response.
//
// The fields parameter carries handler-specific request fields; the
// client adds "action". Pass nil for actions without parameters.
//
// On success, if result is non-nil and the response contains data, the
// data is CBOR-decoded into result. On failure (ok=false), Call returns
// a *ServiceError. Connection and encoding errors are plain errors.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	pending, err := c.Send(ctx, action, fields)
	if err != nil {
		return err
	}
	return pending.Wait(ctx, result)
}

// PendingCall is a request that has been written and whose response
// has not been read yet. Exactly one of Wait or Close must be called.
type PendingCall struct {
	action     string
	socketPath string
	conn       net.Conn
}

// Send connects, writes the request, and half-closes the write side.
// It returns as soon as the server can see the whole request; the
// response is read by Wait.
func (c *ServiceClient) Send(ctx context.Context, action string, fields map[string]any) (*PendingCall, error) {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("calling %q on %s: connecting: %w", action, c.socketPath, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		conn.Close()
		return nil, fmt.Errorf("calling %q on %s: writing request: %w", action, c.socketPath, err)
	}

	// The server reads one CBOR value, so the half-close is not
	// needed for framing; it lets the server see EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	return &PendingCall{action: action, socketPath: c.socketPath, conn: conn}, nil
}

// Wait reads the response and closes the connection. Decoding into
// result follows the same rules as Call.
func (p *PendingCall) Wait(ctx context.Context, result any) error {
	defer p.conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(responseReadTimeout)
	}
	p.conn.SetReadDeadline(deadline)

	// Abort the blocked read if ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() {
		p.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var response Response
	if err := codec.NewDecoder(io.LimitReader(p.conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return fmt.Errorf("calling %q on %s: reading response: %w", p.action, p.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{
			Action:  p.action,
			Message: response.Error,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", p.action, err)
		}
	}
	return nil
}

// Close abandons the call without reading the response.
func (p *PendingCall) Close() error {
	return p.conn.Close()
}
