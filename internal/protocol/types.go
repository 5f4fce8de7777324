// Package protocol defines the JSON envelopes exchanged with room clients and
// the closed sets of incoming and outgoing messages they carry.
package protocol

import "encoding/json"

// Type is the tag carried in the "type" field of every envelope.
type Type string

// Incoming tags.
const (
	TypeJoinRoom      Type = "JOIN_ROOM"
	TypeSendMessage   Type = "SEND_MESSAGE"
	TypeUpvoteMessage Type = "UPVOTE_MESSAGE"
)

// Outgoing tags.
const (
	TypeAddChat    Type = "ADD_CHAT"
	TypeUpdateChat Type = "UPDATE_CHAT"
)

// Envelope is the wire shape of every frame: a tag plus a tag-specific payload.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message is implemented by every payload type.
type Message interface {
	Type() Type
}

// Incoming is the closed set of messages a client may send. Only the types
// declared in this package implement it.
type Incoming interface {
	Message
	incoming()
}

// Outgoing is the closed set of messages the hub broadcasts.
type Outgoing interface {
	Message
	outgoing()
}

// JoinRoom registers the sender's connection as UserID inside RoomID.
type JoinRoom struct {
	Name   string `json:"name" validate:"required"`
	UserID string `json:"userId" validate:"required"`
	RoomID string `json:"roomId" validate:"required"`
}

// SendMessage posts a new chat to RoomID.
type SendMessage struct {
	UserID  string `json:"userId" validate:"required"`
	RoomID  string `json:"roomId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// UpvoteMessage upvotes ChatID in RoomID on behalf of UserID.
type UpvoteMessage struct {
	UserID string `json:"userId" validate:"required"`
	RoomID string `json:"roomId" validate:"required"`
	ChatID string `json:"chatId" validate:"required"`
}

// AddChat announces a freshly posted chat to the rest of the room.
type AddChat struct {
	ChatID  string `json:"chatId" validate:"required"`
	RoomID  string `json:"roomId" validate:"required"`
	Message string `json:"message"`
	Name    string `json:"name"`
	Upvotes int    `json:"upvotes"`
}

// UpdateChat carries the new upvote count of a chat.
type UpdateChat struct {
	ChatID  string `json:"chatId" validate:"required"`
	RoomID  string `json:"roomId" validate:"required"`
	Upvotes int    `json:"upvotes"`
}

func (JoinRoom) Type() Type      { return TypeJoinRoom }
func (SendMessage) Type() Type   { return TypeSendMessage }
func (UpvoteMessage) Type() Type { return TypeUpvoteMessage }
func (AddChat) Type() Type       { return TypeAddChat }
func (UpdateChat) Type() Type    { return TypeUpdateChat }

func (JoinRoom) incoming()      {}
func (SendMessage) incoming()   {}
func (UpvoteMessage) incoming() {}
func (AddChat) outgoing()       {}
func (UpdateChat) outgoing()    {}
