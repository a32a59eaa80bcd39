package livefeed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrServerClosed means the server closed the connection on purpose
	ErrServerClosed = errors.New("server closed the connection")

	// ErrClientClosed means this side closed the connection
	ErrClientClosed = errors.New("client closed the connection")

	// ErrTimeout means the connection stopped responding
	ErrTimeout = errors.New("connection timed out")

	// ErrConnectionClosed means the underlying connection went away without a close handshake
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTransport means the connection failed at the network level
	ErrTransport = errors.New("transport error")

	// ErrNetwork means the server could not be reached at all
	ErrNetwork = errors.New("network unreachable")

	// ErrUnauthorized means the server rejected the credentials
	ErrUnauthorized = errors.New("not authorized")
)

type ReasonKind string

const (
	ReasonServerClose    ReasonKind = "server_close"
	ReasonClientClose    ReasonKind = "client_close"
	ReasonTimeout        ReasonKind = "timeout"
	ReasonConnectionLost ReasonKind = "connection_closed"
	ReasonTransportError ReasonKind = "transport_error"
	ReasonNetwork        ReasonKind = "network"
	ReasonUnauthorized   ReasonKind = "unauthorized"
	ReasonAttemptTimeout ReasonKind = "attempt_timeout"
	ReasonRetriesFailed  ReasonKind = "retries_exhausted"
	ReasonOther          ReasonKind = "other"
)

// Reason is the user facing explanation of why the connection is not up.
type Reason struct {
	Kind       ReasonKind
	Message    string
	Suggestion string
}

// DisconnectReason explains the loss of an established connection.
func DisconnectReason(err error) Reason {
	switch {
	case errors.Is(err, ErrServerClosed):
		return Reason{
			Kind:       ReasonServerClose,
			Message:    "Server closed the connection",
			Suggestion: "The server closed the connection. Please try again in a few moments.",
		}
	case errors.Is(err, ErrClientClosed):
		return Reason{
			Kind:       ReasonClientClose,
			Message:    "Client disconnected",
			Suggestion: "You were disconnected. Please refresh the page to reconnect.",
		}
	case errors.Is(err, ErrTimeout):
		return Reason{
			Kind:       ReasonTimeout,
			Message:    "Connection timed out",
			Suggestion: "The connection timed out. Please check your network stability.",
		}
	case errors.Is(err, ErrConnectionClosed):
		return Reason{
			Kind:       ReasonConnectionLost,
			Message:    "Connection closed",
			Suggestion: "The connection was closed. Please refresh the page to reconnect.",
		}
	case errors.Is(err, ErrTransport):
		return Reason{
			Kind:       ReasonTransportError,
			Message:    "Connection error",
			Suggestion: "There was a connection error. Please check your network connection.",
		}
	default:
		return Reason{
			Kind:       ReasonOther,
			Message:    fmt.Sprintf("Disconnected: %v", err),
			Suggestion: "Please refresh the page to reconnect.",
		}
	}
}

// ConnectReason explains a failed connection attempt.
func ConnectReason(err error, attempt int, attemptTimeout time.Duration) Reason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Reason{
			Kind:       ReasonAttemptTimeout,
			Message:    fmt.Sprintf("Connection attempt %d timed out after %d seconds", attempt, int(attemptTimeout.Seconds())),
			Suggestion: "The connection attempt timed out. Please check your network connection and try again.",
		}
	case errors.Is(err, ErrNetwork):
		return Reason{
			Kind:       ReasonNetwork,
			Message:    "Network error: Unable to reach the server. Please check your internet connection.",
			Suggestion: "Try checking your internet connection and firewall settings.",
		}
	case errors.Is(err, ErrTimeout):
		return Reason{
			Kind:       ReasonTimeout,
			Message:    "Connection timeout: The server is taking too long to respond. Please try again.",
			Suggestion: "The server might be busy. Try again in a few moments.",
		}
	case errors.Is(err, ErrTransport):
		return Reason{
			Kind:       ReasonTransportError,
			Message:    "Connection error: Unable to establish a secure connection. Please try again.",
			Suggestion: "Try using a different network or disabling VPN if active.",
		}
	case errors.Is(err, ErrUnauthorized):
		return Reason{
			Kind:       ReasonUnauthorized,
			Message:    fmt.Sprintf("Connection error: %v", err),
			Suggestion: "Please refresh the page to re-authenticate.",
		}
	default:
		return Reason{
			Kind:       ReasonOther,
			Message:    fmt.Sprintf("Connection error: %v", err),
			Suggestion: "Try refreshing the page or checking your network connection.",
		}
	}
}

func retriesExhausted(maxAttempts int) Reason {
	return Reason{
		Kind:       ReasonRetriesFailed,
		Message:    fmt.Sprintf("Failed to reconnect after %d attempts. Please check your connection and try again.", maxAttempts),
		Suggestion: "Multiple reconnection attempts failed. Please check your network connection and refresh the page.",
	}
}
