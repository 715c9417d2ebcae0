// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/chatdsj/chatdsj/lib/testutil"
)

func startHTTPServer(t *testing.T, handler http.Handler, shutdown time.Duration) (*HTTPServer, context.CancelFunc, chan error) {
	t.Helper()
	server := NewHTTPServer(HTTPServerConfig{
		Address:         "127.0.0.1:0",
		Handler:         handler,
		ShutdownTimeout: shutdown,
		Logger:          slog.New(slog.DiscardHandler),
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "http server never bound")
	return server, cancel, served
}

func TestHTTPServerServesUntilCancelled(t *testing.T) {
	t.Parallel()

	routes := http.NewServeMux()
	routes.HandleFunc("GET /healthz", func(writer http.ResponseWriter, request *http.Request) {
		io.WriteString(writer, `{"status":"ok"}`)
	})
	server, cancel, served := startHTTPServer(t, routes, time.Second)

	response, err := http.Get("http://" + server.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if response.StatusCode != http.StatusOK || string(body) != `{"status":"ok"}` {
		t.Errorf("GET /healthz = %d %q", response.StatusCode, body)
	}

	cancel()
	if err := testutil.RequireReceive[error](t, served, 5*time.Second, "Serve did not return after cancel"); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestHTTPServerDrainsInFlightRequest(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		close(entered)
		<-release
		io.WriteString(writer, "completed")
	})
	server, cancel, served := startHTTPServer(t, slow, 5*time.Second)

	replies := make(chan string, 1)
	go func() {
		response, err := http.Post("http://"+server.Addr().String()+"/test-completion", "application/json", nil)
		if err != nil {
			replies <- "error: " + err.Error()
			return
		}
		defer response.Body.Close()
		body, _ := io.ReadAll(response.Body)
		replies <- string(body)
	}()

	testutil.RequireClosed(t, entered, 5*time.Second, "request never reached the handler")
	cancel()
	close(release)

	if got := testutil.RequireReceive[string](t, replies, 5*time.Second, "in-flight request abandoned"); got != "completed" {
		t.Errorf("in-flight reply = %q, want completed", got)
	}
	if err := testutil.RequireReceive[error](t, served, 5*time.Second, "Serve did not return"); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestHTTPServerListenError(t *testing.T) {
	t.Parallel()

	server := NewHTTPServer(HTTPServerConfig{
		Address: "127.0.0.1:99999",
		Handler: http.NotFoundHandler(),
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err := server.Serve(context.Background()); err == nil {
		t.Fatal("Serve() on an invalid address returned nil")
	}
	if server.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdownTimeout = %v, want default", server.shutdownTimeout)
	}
}

func TestNewHTTPServerRequiresConfig(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	handler := http.NotFoundHandler()
	tests := []struct {
		name   string
		config HTTPServerConfig
	}{
		{"address", HTTPServerConfig{Handler: handler, Logger: logger}},
		{"handler", HTTPServerConfig{Address: ":0", Logger: logger}},
		{"logger", HTTPServerConfig{Address: ":0", Handler: handler}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("NewHTTPServer without %s did not panic", tt.name)
				}
			}()
			NewHTTPServer(tt.config)
		})
	}
}
