// Package server defines shared inbound envelope types and error helpers that
// are reused across client and hub logic.
package server

import (
	"errors"
	"strings"

	"github.com/Tyrowin/roomrelay/internal/chat"
	"github.com/Tyrowin/roomrelay/internal/protocol"
)

var errRateLimited = errors.New("rate limit exceeded")

// inboundEvent is a client frame after boundary decoding. Exactly one of
// event and err is set.
type inboundEvent struct {
	client *Client
	event  protocol.Inbound
	err    error
}

// errorCode classifies a rejected frame for the error reply.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, protocol.ErrMalformed):
		return protocol.CodeMalformed
	case errors.Is(err, errRateLimited):
		return protocol.CodeRateLimited
	case errors.Is(err, chat.ErrUnknownRoom):
		return protocol.CodeUnknownRoom
	case errors.Is(err, chat.ErrNotInRoom):
		return protocol.CodeNotInRoom
	case errors.Is(err, chat.ErrUnknownRecipient):
		return protocol.CodeUnknownRecipient
	default:
		return protocol.CodeInvalid
	}
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
