// Package dispatch routes decoded client messages to the room registry and
// chat store and triggers the resulting broadcasts.
package dispatch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/protocol"
	"github.com/Tyrowin/roomchat/internal/room"
)

var (
	// ErrUserNotInRoom is returned when the sender has not joined the room it addresses.
	ErrUserNotInRoom = errors.New("dispatch: user not in room")
	// ErrChatNotFound is returned when an upvote names a chat the room does not have.
	ErrChatNotFound = errors.New("dispatch: chat not found")
)

// Registry is the subset of room.Registry the dispatcher needs.
type Registry interface {
	Join(name, userID, roomID string, conn room.Connection)
	Lookup(roomID, userID string) (room.User, bool)
	Broadcast(roomID, excludeUserID string, msg protocol.Outgoing) (int, error)
	Drop(conn room.Connection) []room.Membership
}

// Store is the subset of chat.Store the dispatcher needs.
type Store interface {
	AddChat(userID, name, roomID, text string) chat.Chat
	Upvote(userID, roomID, chatID string) (chat.Chat, bool)
}

// Dispatcher applies one message at a time. Every failure ends handling of
// that message only; nothing is reported back to the sender.
type Dispatcher struct {
	rooms  Registry
	chats  Store
	logger *zap.Logger
}

// New returns a Dispatcher over the given registry and store.
func New(rooms Registry, chats Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{rooms: rooms, chats: chats, logger: logger}
}

// HandleFrame decodes a raw client frame and handles it. Protocol errors are
// logged and returned; the connection stays usable.
func (d *Dispatcher) HandleFrame(sender room.Connection, data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		d.logger.Warn("dropping invalid frame", zap.Error(err), zap.ByteString("frame", truncate(data, 256)))
		return err
	}
	return d.Handle(sender, msg)
}

// Handle applies msg on behalf of the client behind sender.
func (d *Dispatcher) Handle(sender room.Connection, msg protocol.Incoming) error {
	switch m := msg.(type) {
	case protocol.JoinRoom:
		d.rooms.Join(m.Name, m.UserID, m.RoomID, sender)
		return nil
	case protocol.SendMessage:
		return d.sendMessage(m)
	case protocol.UpvoteMessage:
		return d.upvote(m)
	default:
		d.logger.Error("unhandled message type", zap.String("go_type", fmt.Sprintf("%T", msg)))
		return fmt.Errorf("dispatch: unhandled message %T", msg)
	}
}

// Disconnect forgets every membership held by conn.
func (d *Dispatcher) Disconnect(conn room.Connection) {
	for _, m := range d.rooms.Drop(conn) {
		d.logger.Info("user left room", zap.String("room", m.RoomID), zap.String("user", m.UserID))
	}
}

func (d *Dispatcher) sendMessage(m protocol.SendMessage) error {
	user, ok := d.rooms.Lookup(m.RoomID, m.UserID)
	if !ok {
		d.logger.Warn("message from user outside room", zap.String("room", m.RoomID), zap.String("user", m.UserID))
		return fmt.Errorf("%w: %s in %s", ErrUserNotInRoom, m.UserID, m.RoomID)
	}

	c := d.chats.AddChat(m.UserID, user.Name, m.RoomID, m.Message)

	_, err := d.rooms.Broadcast(m.RoomID, m.UserID, protocol.AddChat{
		ChatID:  c.ID,
		RoomID:  m.RoomID,
		Message: m.Message,
		Name:    user.Name,
		Upvotes: 0,
	})
	return err
}

func (d *Dispatcher) upvote(m protocol.UpvoteMessage) error {
	if _, ok := d.rooms.Lookup(m.RoomID, m.UserID); !ok {
		d.logger.Warn("upvote from user outside room", zap.String("room", m.RoomID), zap.String("user", m.UserID))
		return fmt.Errorf("%w: %s in %s", ErrUserNotInRoom, m.UserID, m.RoomID)
	}

	c, ok := d.chats.Upvote(m.UserID, m.RoomID, m.ChatID)
	if !ok {
		d.logger.Debug("upvote for unknown chat", zap.String("room", m.RoomID), zap.String("chat", m.ChatID))
		return fmt.Errorf("%w: %s", ErrChatNotFound, m.ChatID)
	}

	_, err := d.rooms.Broadcast(m.RoomID, m.UserID, protocol.UpdateChat{
		ChatID:  m.ChatID,
		RoomID:  m.RoomID,
		Upvotes: c.Upvotes(),
	})
	return err
}

func truncate(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[:n]
}
