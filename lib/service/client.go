// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/servicetoken"
)

// dialTimeout covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout covers the server's read and write timeouts plus
// handler time.
const responseReadTimeout = readTimeout + writeTimeout + 30*time.Second

// maxResponseSize matches the server's request bound; export bundles
// carry whole evidence files.
const maxResponseSize = DefaultMaxRequestSize + 1<<20

// ServiceError is returned by Call when the server responds with
// ok=false.
type ServiceError struct {
	Action  string
	Message string

	// Kind is the server's error kind, empty if it named none.
	Kind string
}

func (e *ServiceError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("service error on %q (%s): %s", e.Action, e.Kind, e.Message)
	}
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// ServiceClient sends CBOR requests to a service socket. Each Call
// opens a new connection, sends the request, reads the response, and
// closes the connection.
//
// A client with a token includes it in every request as the "token"
// field.
type ServiceClient struct {
	socketPath string
	tokenBytes []byte
}

// NewServiceClient creates an authenticated client from a token file.
// The file holds the base64url form written by "custody token mint".
func NewServiceClient(socketPath, tokenPath string) (*ServiceClient, error) {
	contents, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("reading service token from %s: %w", tokenPath, err)
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("service token file %s is empty", tokenPath)
	}
	tokenBytes, err := servicetoken.DecodeString(string(contents))
	if err != nil {
		return nil, fmt.Errorf("service token file %s: %w", tokenPath, err)
	}
	return &ServiceClient{socketPath: socketPath, tokenBytes: tokenBytes}, nil
}

// NewServiceClientFromToken creates a client with pre-loaded raw token
// bytes. A nil token yields an unauthenticated client.
func NewServiceClientFromToken(socketPath string, tokenBytes []byte) *ServiceClient {
	return &ServiceClient{socketPath: socketPath, tokenBytes: tokenBytes}
}

// Call sends a request and decodes the response.
//
// fields holds the action-specific request fields; the client adds
// "action" and "token". On success, response data is decoded into
// result if both are non-nil. On ok=false, Call returns a
// *ServiceError. Connection and encoding errors are plain errors.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	response, err := c.send(ctx, c.buildRequest(action, fields))
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error, Kind: response.Kind}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *ServiceClient) buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	if c.tokenBytes != nil {
		request["token"] = c.tokenBytes
	}
	return request
}

func (c *ServiceClient) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	if _, ok := ctx.Deadline(); !ok {
		conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	}
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
