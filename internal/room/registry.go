// Package room tracks which users are connected to which rooms and fans
// broadcasts out to them.
package room

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

// ErrRoomNotFound is returned by Broadcast when no one ever joined the room.
var ErrRoomNotFound = errors.New("room: room not found")

// Connection is a live channel to one client. Send must not block.
type Connection interface {
	IsOpen() bool
	Send(data []byte) error
}

// User is one member record of a room.
type User struct {
	ID   string
	Name string
	Conn Connection
}

type room struct {
	members []User
}

func (r *room) index(userID string) int {
	for i, u := range r.members {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

// Registry maps room ids to their connected members. All methods are safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	logger *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:  make(map[string]*room),
		logger: logger,
	}
}

// Join registers userID in roomID, creating the room on first use. A user id
// already present in the room has its record replaced in place, so the most
// recent connection wins.
func (r *Registry) Join(name, userID, roomID string, conn Connection) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{}
		r.rooms[roomID] = rm
	}

	user := User{ID: userID, Name: name, Conn: conn}
	replaced := false
	if i := rm.index(userID); i >= 0 {
		rm.members[i] = user
		replaced = true
	} else {
		rm.members = append(rm.members, user)
	}
	members := len(rm.members)
	r.mu.Unlock()

	r.logger.Info("user joined room",
		zap.String("room", roomID),
		zap.String("user", userID),
		zap.Bool("replaced", replaced),
		zap.Int("members", members))
}

// Leave removes every record of userID from roomID. Unknown rooms and users
// are ignored.
func (r *Registry) Leave(roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	rm.members = removeMembers(rm.members, func(u User) bool { return u.ID == userID })
}

// Membership names a user inside a room.
type Membership struct {
	RoomID string
	UserID string
}

// Drop removes every member record bound to conn, in every room, and reports
// what was removed. The transport calls it when a connection closes.
func (r *Registry) Drop(conn Connection) []Membership {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []Membership
	for id, rm := range r.rooms {
		rm.members = removeMembers(rm.members, func(u User) bool {
			if u.Conn != conn {
				return false
			}
			dropped = append(dropped, Membership{RoomID: id, UserID: u.ID})
			return true
		})
	}
	return dropped
}

// Lookup returns the member record for userID in roomID.
func (r *Registry) Lookup(roomID, userID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return User{}, false
	}
	i := rm.index(userID)
	if i < 0 {
		return User{}, false
	}
	return rm.members[i], true
}

// Broadcast encodes msg once and sends it to every open member of roomID
// except excludeUserID. Delivery failures are logged and skipped. It returns
// the number of members the frame was handed to.
func (r *Registry) Broadcast(roomID, excludeUserID string, msg protocol.Outgoing) (int, error) {
	recipients, ok := r.snapshot(roomID)
	if !ok {
		r.logger.Warn("broadcast to unknown room", zap.String("room", roomID))
		return 0, ErrRoomNotFound
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("encode broadcast", zap.String("room", roomID), zap.Error(err))
		return 0, err
	}

	delivered := 0
	for _, u := range recipients {
		if u.ID == excludeUserID || u.Conn == nil || !u.Conn.IsOpen() {
			continue
		}
		if err := u.Conn.Send(data); err != nil {
			r.logger.Debug("skipping recipient",
				zap.String("room", roomID),
				zap.String("user", u.ID),
				zap.Error(err))
			continue
		}
		delivered++
	}

	r.logger.Debug("broadcast",
		zap.String("room", roomID),
		zap.String("type", string(msg.Type())),
		zap.Int("delivered", delivered))
	return delivered, nil
}

// MemberCount reports how many member records roomID holds.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rm, ok := r.rooms[roomID]; ok {
		return len(rm.members)
	}
	return 0
}

// RoomCount reports how many rooms exist, including empty ones.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// snapshot copies the member list so sends happen outside the lock.
func (r *Registry) snapshot(roomID string) ([]User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return append([]User(nil), rm.members...), true
}

func removeMembers(members []User, drop func(User) bool) []User {
	kept := members[:0]
	for _, u := range members {
		if !drop(u) {
			kept = append(kept, u)
		}
	}
	clear(members[len(kept):])
	return kept
}
