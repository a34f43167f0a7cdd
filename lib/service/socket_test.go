// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/digestd/lib/codec"
	"github.com/bureau-foundation/digestd/lib/testutil"
)

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Errorf("connecting to socket: %v", err)
		return Response{}
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Errorf("writing request: %v", err)
		return Response{}
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Errorf("decoding response: %v", err)
	}
	return response
}

// decodeData unmarshals the Data field of a response into target.
func decodeData(t *testing.T, response Response, target any) {
	t.Helper()
	if len(response.Data) == 0 {
		t.Fatal("response has no data to decode")
	}
	if err := codec.Unmarshal(response.Data, target); err != nil {
		t.Fatalf("decoding response data: %v", err)
	}
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "test.sock")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs Serve until the test ends and waits for the socket
// to listen. The returned channel receives Serve's result.
func startServer(t *testing.T, server *SocketServer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	t.Cleanup(cancel)
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "socket server did not start")
	return cancel, serveDone
}

func TestSocketServerStatus(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{
			"uptime_seconds": 42,
			"pool_size":      3,
		}, nil
	})
	cancel, serveDone := startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Errorf("expected ok=true, got false")
	}

	var data map[string]any
	decodeData(t, response, &data)
	if data["uptime_seconds"] != uint64(42) {
		t.Errorf("expected uptime_seconds=42, got %v (%T)", data["uptime_seconds"], data["uptime_seconds"])
	}
	if data["pool_size"] != uint64(3) {
		t.Errorf("expected pool_size=3, got %v (%T)", data["pool_size"], data["pool_size"])
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
}

func TestSocketServerRejectsBadRequests(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	tests := []struct {
		name    string
		request any
	}{
		{"unknown action", map[string]string{"action": "nonexistent"}},
		{"missing action", map[string]string{"foo": "bar"}},
		{"action not a string", map[string]any{"action": 7}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := sendRequest(t, socketPath, test.request)
			if response.OK {
				t.Errorf("expected ok=false, got true")
			}
			if response.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestSocketServerInvalidCBOR(t *testing.T) {
	socketPath := testSocketPath(t)
	startServer(t, NewSocketServer(socketPath, testLogger()))

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb})
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if response.OK {
		t.Errorf("expected ok=false for invalid CBOR, got true")
	}
}

func TestSocketServerHandlerError(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, fmt.Errorf("something broke")
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "fail"})
	if response.OK {
		t.Errorf("expected ok=false, got true")
	}
	if response.Error != "something broke" {
		t.Errorf("expected error='something broke', got %q", response.Error)
	}
}

func TestSocketServerNilResult(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("resize", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "resize"})
	if !response.OK {
		t.Errorf("expected ok=true, got false")
	}
	if len(response.Data) != 0 {
		t.Errorf("expected no data in response, got %d bytes", len(response.Data))
	}
}

func TestSocketServerHandlerTimeout(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.HandlerTimeout = 20 * time.Millisecond
	server.Handle("wait", func(ctx context.Context, raw []byte) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "wait"})
	if response.OK || response.Error != context.DeadlineExceeded.Error() {
		t.Errorf("response = %+v, want deadline exceeded failure", response)
	}
}

func TestSocketServerConcurrentRequests(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Value int `cbor:"value"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]any{"value": request.Value}, nil
	})
	startServer(t, server)

	const concurrency = 20
	var clients sync.WaitGroup
	for i := range concurrency {
		clients.Add(1)
		go func() {
			defer clients.Done()
			response := sendRequest(t, socketPath, map[string]any{
				"action": "echo",
				"value":  i,
			})
			if !response.OK {
				t.Errorf("request %d: expected ok=true", i)
				return
			}
			var data map[string]any
			if err := codec.Unmarshal(response.Data, &data); err != nil {
				t.Errorf("request %d: decoding data: %v", i, err)
				return
			}
			if data["value"] != uint64(i) {
				t.Errorf("request %d: expected value=%d, got %v", i, i, data["value"])
			}
		}()
	}
	clients.Wait()
}

func TestSocketServerGracefulShutdown(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())

	handlerStarted := make(chan struct{})
	handlerRelease := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(handlerStarted)
		<-handlerRelease
		return map[string]any{"completed": true}, nil
	})
	cancel, serveDone := startServer(t, server)

	responses := make(chan Response, 1)
	go func() {
		responses <- sendRequest(t, socketPath, map[string]string{"action": "slow"})
	}()

	testutil.RequireClosed(t, handlerStarted, 5*time.Second, "handler did not start")
	cancel()
	testutil.RequireNoReceive(t, serveDone, 20*time.Millisecond, "Serve returned with a handler in flight")
	close(handlerRelease)

	response := testutil.RequireReceive(t, responses, 5*time.Second, "in-flight response")
	if !response.OK {
		t.Errorf("expected ok=true for in-flight request, got false")
	}
	var data map[string]any
	decodeData(t, response, &data)
	if data["completed"] != true {
		t.Errorf("expected completed=true, got %v", data["completed"])
	}

	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return after cancellation"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file not cleaned up after Serve returned")
	}
}

func TestSocketServerReplacesStaleSocket(t *testing.T) {
	socketPath := testSocketPath(t)
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatalf("creating stale file: %v", err)
	}
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })
	startServer(t, server)

	if response := sendRequest(t, socketPath, map[string]string{"action": "status"}); !response.OK {
		t.Errorf("request after replacing stale socket failed: %q", response.Error)
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", testLogger())
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate handler")
		}
	}()
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
}
