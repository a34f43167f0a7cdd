// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/digestd/lib/testutil"
)

func TestHTTPServerLifecycle(t *testing.T) {
	metrics := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprintf(writer, "digestd_queue_depth 0\n")
	})
	server := NewHTTPServer(HTTPServerConfig{
		Address:         "127.0.0.1:0",
		Handler:         MetricsMux(metrics),
		ShutdownTimeout: 2 * time.Second,
		Logger:          testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "http server did not become ready")

	base := "http://" + server.Addr().String()
	response, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if response.StatusCode != http.StatusOK || !strings.Contains(string(body), "digestd_queue_depth") {
		t.Errorf("GET /metrics = %d %q", response.StatusCode, body)
	}

	for path, want := range map[string]int{"/healthz": http.StatusOK, "/other": http.StatusNotFound} {
		response, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		response.Body.Close()
		if response.StatusCode != want {
			t.Errorf("GET %s status = %d, want %d", path, response.StatusCode, want)
		}
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "http server did not shut down"); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestHTTPServerPanicsOnMissingConfig(t *testing.T) {
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	tests := []struct {
		name   string
		config HTTPServerConfig
	}{
		{"missing_address", HTTPServerConfig{Handler: handler, Logger: testLogger()}},
		{"missing_handler", HTTPServerConfig{Address: ":0", Logger: testLogger()}},
		{"missing_logger", HTTPServerConfig{Address: ":0", Handler: handler}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewHTTPServer(test.config)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var output bytes.Buffer
	logger, err := NewLogger(&output, "warn", "json")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "requester", 7)
	if strings.Contains(output.String(), "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(output.String(), `"requester":7`) {
		t.Errorf("json output missing attribute: %s", output.String())
	}

	output.Reset()
	logger, err = NewLogger(&output, "debug", "text")
	if err != nil {
		t.Fatalf("NewLogger text: %v", err)
	}
	logger.Debug("visible", "worker", 2)
	if !strings.Contains(output.String(), "worker=2") {
		t.Errorf("text output = %q", output.String())
	}

	if _, err := NewLogger(&output, "loud", "json"); err == nil {
		t.Error("NewLogger accepted level loud")
	}
	if _, err := NewLogger(&output, "info", "xml"); err == nil {
		t.Error("NewLogger accepted format xml")
	}
}
