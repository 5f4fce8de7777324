// Package server defines shared transport errors and utility helpers that
// are reused across client and hub logic.
package server

import (
	"errors"
	"strings"
)

var (
	// ErrConnectionClosed is returned by Client.Send once the client is unregistered.
	ErrConnectionClosed = errors.New("server: connection closed")
	// ErrSendBufferFull is returned by Client.Send when the peer is not draining its queue.
	ErrSendBufferFull = errors.New("server: send buffer full")
)

// inboundFrame is a raw frame read from a client, queued for the hub.
type inboundFrame struct {
	client *Client
	data   []byte
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
