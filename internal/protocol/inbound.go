package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformed reports a frame that is not a JSON object of a known shape.
	ErrMalformed = errors.New("malformed payload")
	// ErrUnknownKind reports a well-formed frame whose type is not understood.
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrInvalid reports a frame missing a required field.
	ErrInvalid = errors.New("invalid event")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Inbound is one decoded client event. The set of implementations is closed.
type Inbound interface {
	Kind() Kind
	inbound()
}

// SetUsername asks to change the sender's display name.
type SetUsername struct {
	Username string `json:"username" validate:"required"`
}

// JoinRoom asks to move the sender into Room.
type JoinRoom struct {
	Room string `json:"room" validate:"required"`
}

// LeaveRoom asks to remove the sender from Room.
type LeaveRoom struct {
	Room string `json:"room" validate:"required"`
}

// SendMessage posts Text to every member of Room.
type SendMessage struct {
	Room string `json:"room" validate:"required"`
	Text string `json:"message"`
}

// PrivateMessage sends Text to a single connection.
type PrivateMessage struct {
	To   string `json:"toUserId" validate:"required"`
	Text string `json:"message"`
}

func (SetUsername) Kind() Kind    { return KindSetUsername }
func (JoinRoom) Kind() Kind       { return KindJoinRoom }
func (LeaveRoom) Kind() Kind      { return KindLeaveRoom }
func (SendMessage) Kind() Kind    { return KindMessage }
func (PrivateMessage) Kind() Kind { return KindPrivateMessage }

func (SetUsername) inbound()    {}
func (JoinRoom) inbound()       {}
func (LeaveRoom) inbound()      {}
func (SendMessage) inbound()    {}
func (PrivateMessage) inbound() {}

// Decode parses a raw client frame. The returned error wraps ErrMalformed,
// ErrUnknownKind or ErrInvalid.
func Decode(raw []byte) (Inbound, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch envelope.Type {
	case KindSetUsername:
		return decodeAs[SetUsername](raw)
	case KindJoinRoom:
		return decodeAs[JoinRoom](raw)
	case KindLeaveRoom:
		return decodeAs[LeaveRoom](raw)
	case KindMessage:
		return decodeAs[SendMessage](raw)
	case KindPrivateMessage:
		return decodeAs[PrivateMessage](raw)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, envelope.Type)
	}
}

func decodeAs[T Inbound](raw []byte) (Inbound, error) {
	var event T
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, event.Kind(), err)
	}
	if err := validate.Struct(event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, event.Kind(), err)
	}
	return event, nil
}
