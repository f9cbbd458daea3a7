// Copyright 2026 The Bureau Authors
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

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/netutil"
	"github.com/bureau-foundation/custody/lib/servicetoken"
)

// ActionFunc processes a socket request for a specific action. The raw
// parameter is the full CBOR request (including the "action" field).
//
// A nil result produces {ok: true}. A non-nil result is marshaled as
// CBOR into the response's "data" field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// AuthActionFunc is an ActionFunc that runs only after the request's
// token has been verified.
type AuthActionFunc func(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error)

// Response is the wire-format envelope for all socket responses.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Kind  string           `cbor:"kind,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// DefaultMaxRequestSize bounds a single CBOR request. Evidence uploads
// travel inside requests, so this is sized for files rather than
// control messages.
const DefaultMaxRequestSize = 64 << 20

// SocketServer serves a CBOR request-response protocol on a Unix
// socket. Each connection handles exactly one request-response cycle.
//
// Actions are registered with Handle or HandleAuth before calling
// Serve. Unknown actions receive an error response.
type SocketServer struct {
	socketPath     string
	handlers       map[string]ActionFunc
	authConfig     *AuthConfig
	logger         *slog.Logger
	errorKind      func(error) string
	maxRequestSize int64

	// activeConnections tracks in-flight handlers; Serve waits for
	// them before returning.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
// authConfig may be nil if no action requires authentication.
func NewSocketServer(socketPath string, logger *slog.Logger, authConfig *AuthConfig) *SocketServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketServer{
		socketPath:     socketPath,
		handlers:       make(map[string]ActionFunc),
		authConfig:     authConfig,
		logger:         logger,
		maxRequestSize: DefaultMaxRequestSize,
	}
}

// SetErrorKind installs the function that names the kind of a handler
// error in the response's "kind" field.
func (s *SocketServer) SetErrorKind(kind func(error) string) {
	s.errorKind = kind
}

// SetMaxRequestSize overrides DefaultMaxRequestSize.
func (s *SocketServer) SetMaxRequestSize(size int64) {
	s.maxRequestSize = size
}

// Handle registers an unauthenticated handler. Panics if the action is
// already registered.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleAuth registers a handler that requires a valid token. Panics
// if the server has no AuthConfig.
func (s *SocketServer) HandleAuth(action string, handler AuthActionFunc) {
	if s.authConfig == nil {
		panic(fmt.Sprintf("service.SocketServer: HandleAuth(%q) on a server without AuthConfig", action))
	}
	s.Handle(action, func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Token []byte `cbor:"token"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		token, err := s.authConfig.Authenticate(request.Token)
		if err != nil {
			return nil, err
		}
		return handler(ctx, token, raw)
	})
}

// RegisterRevocationHandler registers the "revoke-tokens" action. The
// request's "revocation" field holds a signed RevocationRequest; no
// token is required because the signature is the credential.
func (s *SocketServer) RegisterRevocationHandler() {
	if s.authConfig == nil {
		panic("service.SocketServer: RegisterRevocationHandler on a server without AuthConfig")
	}
	s.Handle("revoke-tokens", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Revocation []byte `cbor:"revocation"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		revocation, err := s.authConfig.Revoke(request.Revocation)
		if err != nil {
			return nil, err
		}
		s.logger.Info("tokens revoked",
			"count", len(revocation.Entries),
			"reason", revocation.Reason,
		)
		return map[string]int{"revoked": len(revocation.Entries)}, nil
	})
}

// Serve accepts connections until ctx is cancelled, then waits for
// active handlers to complete. Any stale socket file is removed before
// listening, and the socket file is removed on return.
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
	if err := os.Chmod(s.socketPath, 0o660); err != nil {
		return fmt.Errorf("restricting socket %s: %w", s.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// readTimeout is how long we wait for the client to send its request.
// Uploads of large evidence files need the headroom.
const readTimeout = 2 * time.Minute

const writeTimeout = 30 * time.Second

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting, so no framing is needed. LimitReader
	// bounds memory per connection.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, s.maxRequestSize)).Decode(&raw); err != nil {
		if netutil.IsExpectedCloseError(err) {
			return
		}
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err), "")
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Sprintf("invalid request: %v", err), "")
		return
	}
	if header.Action == "" {
		s.writeError(conn, "missing required field: action", "")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Sprintf("unknown action %q", header.Action), "")
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		kind := s.kindOf(err)
		s.logger.Debug("action failed",
			"action", header.Action,
			"kind", kind,
			"error", err,
		)
		s.writeError(conn, err.Error(), kind)
		return
	}

	s.writeSuccess(conn, result)
}

func (s *SocketServer) kindOf(err error) string {
	if errors.Is(err, ErrUnauthenticated) {
		return KindUnauthenticated
	}
	if s.errorKind != nil {
		return s.errorKind(err)
	}
	return ""
}

// writeError sends {ok: false, error, kind}. The connection is closing
// regardless, so a peer that already left is not worth a log line.
func (s *SocketServer) writeError(conn net.Conn, message, kind string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: message,
		Kind:  kind,
	}); err != nil && !netutil.IsExpectedCloseError(err) {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// writeSuccess sends {ok: true} or {ok: true, data: <cbor>}.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Sprintf("internal: marshaling response: %v", err), "internal")
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		// The action already ran; for mutating actions the ledger
		// holds the result even though the client never saw it.
		if netutil.IsExpectedCloseError(err) {
			s.logger.Warn("client disconnected before the response was written", "error", err)
			return
		}
		s.logger.Error("failed to write success response", "error", err)
	}
}
