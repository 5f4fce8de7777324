package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformedEnvelope is returned when a frame is not a JSON envelope.
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")
	// ErrUnknownType is returned when the envelope tag is not part of the protocol.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrInvalidPayload is returned when the payload does not match its tag.
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)

// Error describes why a single frame was rejected. It matches one of the
// package sentinels through errors.Is.
type Error struct {
	Type  Type
	Kind  error
	Cause error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Type != "" {
		msg += fmt.Sprintf(" %q", e.Type)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

var validate = validator.New()

var incomingDecoders = map[Type]func(json.RawMessage) (Incoming, error){
	TypeJoinRoom:      decodeIncoming[JoinRoom],
	TypeSendMessage:   decodeIncoming[SendMessage],
	TypeUpvoteMessage: decodeIncoming[UpvoteMessage],
}

var outgoingDecoders = map[Type]func(json.RawMessage) (Outgoing, error){
	TypeAddChat:    decodeOutgoing[AddChat],
	TypeUpdateChat: decodeOutgoing[UpdateChat],
}

// Decode parses a client frame into one of the Incoming message types.
func Decode(data []byte) (Incoming, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	decode, ok := incomingDecoders[env.Type]
	if !ok {
		return nil, &Error{Type: env.Type, Kind: ErrUnknownType}
	}

	msg, err := decode(env.Payload)
	if err != nil {
		return nil, &Error{Type: env.Type, Kind: ErrInvalidPayload, Cause: err}
	}
	return msg, nil
}

// DecodeOutgoing parses a hub frame. Clients written in Go use it to read broadcasts.
func DecodeOutgoing(data []byte) (Outgoing, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	decode, ok := outgoingDecoders[env.Type]
	if !ok {
		return nil, &Error{Type: env.Type, Kind: ErrUnknownType}
	}

	msg, err := decode(env.Payload)
	if err != nil {
		return nil, &Error{Type: env.Type, Kind: ErrInvalidPayload, Cause: err}
	}
	return msg, nil
}

// Encode wraps msg in an envelope tagged with its type.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("protocol: nil message")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s payload: %w", msg.Type(), err)
	}

	data, err := json.Marshal(Envelope{Type: msg.Type(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s envelope: %w", msg.Type(), err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, &Error{Kind: ErrMalformedEnvelope, Cause: err}
	}
	if env.Type == "" {
		return Envelope{}, &Error{Kind: ErrMalformedEnvelope, Cause: errors.New("missing type")}
	}
	return env, nil
}

func decodeIncoming[T Incoming](raw json.RawMessage) (Incoming, error) {
	p, err := decodePayload[T](raw)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeOutgoing[T Outgoing](raw json.RawMessage) (Outgoing, error) {
	p, err := decodePayload[T](raw)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p, errors.New("missing payload")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	if err := validate.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}
