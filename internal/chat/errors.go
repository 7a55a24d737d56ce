package chat

import "errors"

var (
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrUnknownRoom         = errors.New("unknown room")
	ErrNotInRoom           = errors.New("not a member of room")
	ErrUnknownRecipient    = errors.New("unknown recipient")
	ErrInvalidUsername     = errors.New("invalid username")

	// ErrNotOpen and ErrBackpressure are returned by Sender implementations.
	ErrNotOpen      = errors.New("connection not open")
	ErrBackpressure = errors.New("send queue full")
)
