package livefeed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisconnectReason(t *testing.T) {
	tests := []struct {
		err        error
		kind       ReasonKind
		message    string
		suggestion string
	}{
		{fmt.Errorf("%w: 1001", ErrServerClosed), ReasonServerClose, "Server closed the connection", "The server closed the connection. Please try again in a few moments."},
		{ErrClientClosed, ReasonClientClose, "Client disconnected", "You were disconnected. Please refresh the page to reconnect."},
		{ErrTimeout, ReasonTimeout, "Connection timed out", "The connection timed out. Please check your network stability."},
		{ErrConnectionClosed, ReasonConnectionLost, "Connection closed", "The connection was closed. Please refresh the page to reconnect."},
		{ErrTransport, ReasonTransportError, "Connection error", "There was a connection error. Please check your network connection."},
		{errors.New("weird"), ReasonOther, "Disconnected: weird", "Please refresh the page to reconnect."},
	}
	for _, tt := range tests {
		r := DisconnectReason(tt.err)
		assert.Equal(t, tt.kind, r.Kind)
		assert.Equal(t, tt.message, r.Message)
		assert.Equal(t, tt.suggestion, r.Suggestion)
	}
}

func TestConnectReason(t *testing.T) {
	r := ConnectReason(fmt.Errorf("%w: dial", context.DeadlineExceeded), 3, 10*time.Second)
	assert.Equal(t, "Connection attempt 3 timed out after 10 seconds", r.Message)

	r = ConnectReason(fmt.Errorf("%w: refused", ErrNetwork), 1, 10*time.Second)
	assert.Equal(t, "Network error: Unable to reach the server. Please check your internet connection.", r.Message)

	r = ConnectReason(ErrTimeout, 1, 10*time.Second)
	assert.Equal(t, "The server might be busy. Try again in a few moments.", r.Suggestion)

	r = ConnectReason(ErrTransport, 1, 10*time.Second)
	assert.Equal(t, "Try using a different network or disabling VPN if active.", r.Suggestion)

	r = ConnectReason(ErrUnauthorized, 1, 10*time.Second)
	assert.Equal(t, ReasonUnauthorized, r.Kind)
	assert.Equal(t, "Please refresh the page to re-authenticate.", r.Suggestion)

	r = ConnectReason(errors.New("boom"), 1, 10*time.Second)
	assert.Equal(t, "Connection error: boom", r.Message)
	assert.Equal(t, "Try refreshing the page or checking your network connection.", r.Suggestion)
}
