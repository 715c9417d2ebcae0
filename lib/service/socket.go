// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/chatdsj/chatdsj/lib/codec"
)

// ActionFunc answers one admin request such as "status" or
// "channels". raw is the whole CBOR request map, action field
// included, so a handler decodes its own parameters (e.g. "limit").
// A nil result answers {ok: true}; anything else is encoded into
// Response.Data. An error's text is sent to chatdsj-admin verbatim.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope for every admin socket reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// PeerCheck vets a connecting process before its request is read.
// An error rejects the connection with that message.
type PeerCheck func(conn *net.UnixConn) error

// SocketServer is the chatdsj admin endpoint (admin.socket_path). A
// connection carries one CBOR request map with an "action" key and
// gets one Response back before it is closed. The socket file is mode
// 0600, and RestrictToOwner also checks the peer uid, since the
// actions expose usage figures and can reset the ledger.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     *slog.Logger
	peerCheck  PeerCheck

	// inFlight lets Serve wait for running actions before the
	// service closes the stores they read.
	inFlight sync.WaitGroup
}

// NewSocketServer creates an admin server for socketPath. A nil
// logger uses slog.Default().
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     logger,
	}
}

// Handle registers handler for action. Call it before Serve;
// registering an action twice panics.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// RestrictToOwner admits only processes running as the service's own
// uid. Where SO_PEERCRED is unavailable the file mode is the only
// check.
func (s *SocketServer) RestrictToOwner() {
	owner := os.Getuid()
	s.peerCheck = func(conn *net.UnixConn) error {
		uid, err := peerUID(conn)
		if errors.Is(err, errPeerCredentialsUnsupported) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading peer credentials: %w", err)
		}
		if uid != owner {
			return fmt.Errorf("permission denied for uid %d", uid)
		}
		return nil
	}
}

// Serve listens until ctx is cancelled, then waits for running
// actions. A socket file left by a crashed service is replaced, and
// the file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting %s: %w", s.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("admin socket listening", "path", s.socketPath, "actions", len(s.handlers))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("admin socket accept failed", "error", err)
			continue
		}

		s.inFlight.Add(1)
		go func() {
			defer s.inFlight.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.inFlight.Wait()
	return nil
}

const (
	// chatdsj-admin writes its request right after connecting.
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second

	// Admin requests are an action name and at most a couple of
	// parameters.
	maxRequestSize = 64 * 1024
)

// handleConnection answers one admin request.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if s.peerCheck != nil {
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			s.writeError(conn, "permission denied")
			return
		}
		if err := s.peerCheck(unixConn); err != nil {
			s.logger.Warn("admin socket connection rejected", "error", err)
			s.writeError(conn, err.Error())
			return
		}
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// One self-delimiting CBOR value; no framing.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	started := time.Now()
	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Warn("admin action failed",
			"action", header.Action,
			"error", err,
		)
		s.writeError(conn, err.Error())
		return
	}
	s.logger.Debug("admin action served",
		"action", header.Action,
		"duration", time.Since(started),
	)
	s.writeSuccess(conn, result)
}

// writeError replies {ok: false, error: message}.
func (s *SocketServer) writeError(conn net.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: message,
	}); err != nil {
		s.logger.Debug("admin error reply not delivered", "error", err)
	}
}

// writeSuccess replies {ok: true}, with data when result is non-nil.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("encoding %T reply: %v", result, err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("admin reply not delivered", "error", err)
	}
}
