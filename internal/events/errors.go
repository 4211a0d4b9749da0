package events

import (
	"errors"
	"net"
	"net/http"
	"syscall"
)

// ErrorCode represents realtime connection error types.
type ErrorCode int

const (
	ErrServerUnreachable ErrorCode = iota
	ErrConnectionRefused
	ErrUnauthorized
	ErrHandshakeRejected
)

// ConnectError represents a structured connection error with context.
type ConnectError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Err     error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	if e.Hint != "" {
		return e.Message + ". " + e.Hint
	}
	return e.Message
}

// Unwrap returns the underlying dial error
func (e *ConnectError) Unwrap() error { return e.Err }

// ClassifyConnectError maps a dial failure to a ConnectError. resp is the
// handshake response, when the server answered at all.
func ClassifyConnectError(err error, resp *http.Response) *ConnectError {
	if err == nil {
		return nil
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return &ConnectError{
				Code:    ErrUnauthorized,
				Message: "Authentication error",
				Hint:    "Check the token: kanban token --user <id>",
				Err:     err,
			}
		default:
			return &ConnectError{
				Code:    ErrHandshakeRejected,
				Message: "Server rejected the realtime connection (" + resp.Status + ")",
				Err:     err,
			}
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.ECONNREFUSED {
		return &ConnectError{
			Code:    ErrConnectionRefused,
			Message: "Connection refused",
			Hint:    "Is the server running? Start it with: kanban serve",
			Err:     err,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ConnectError{
			Code:    ErrServerUnreachable,
			Message: "Server host not found",
			Hint:    "Check client.server_url in the config",
			Err:     err,
		}
	}

	return &ConnectError{
		Code:    ErrServerUnreachable,
		Message: "Server unreachable",
		Hint:    "Check client.server_url in the config",
		Err:     err,
	}
}
