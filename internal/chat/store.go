// Package chat stores the chats posted in each room and the users who
// upvoted them.
package chat

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chat is a single message posted to a room. Values returned by the Store
// are snapshots; mutating them does not affect stored state.
type Chat struct {
	ID         string
	RoomID     string
	AuthorID   string
	AuthorName string
	Text       string
	Upvoters   []string
	CreatedAt  time.Time
}

// Upvotes is the number of distinct users who upvoted the chat.
func (c Chat) Upvotes() int {
	return len(c.Upvoters)
}

func (c *Chat) upvotedBy(userID string) bool {
	return slices.Contains(c.Upvoters, userID)
}

func (c *Chat) snapshot() Chat {
	out := *c
	out.Upvoters = slices.Clone(c.Upvoters)
	return out
}

type roomChats struct {
	order []*Chat
	byID  map[string]*Chat
}

// Store holds every chat in memory, keyed by room. It is safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	rooms  map[string]*roomChats
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator used for chat ids. Generated
// ids must be unique across the whole store.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		s.now = fn
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:  make(map[string]*roomChats),
		newID:  uuid.NewString,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddChat stores a new chat with no upvotes and returns it.
func (s *Store) AddChat(userID, name, roomID, text string) Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.rooms[roomID]
	if !ok {
		rc = &roomChats{byID: make(map[string]*Chat)}
		s.rooms[roomID] = rc
	}

	c := &Chat{
		ID:         s.newID(),
		RoomID:     roomID,
		AuthorID:   userID,
		AuthorName: name,
		Text:       text,
		Upvoters:   []string{},
		CreatedAt:  s.now(),
	}
	rc.order = append(rc.order, c)
	rc.byID[c.ID] = c

	s.logger.Debug("chat added",
		zap.String("room", roomID),
		zap.String("chat", c.ID),
		zap.String("user", userID))
	return c.snapshot()
}

// Upvote records userID's vote on chatID in roomID. A user's repeated
// upvotes count once. It reports false when the chat does not exist.
func (s *Store) Upvote(userID, roomID, chatID string) (Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.rooms[roomID]
	if !ok {
		return Chat{}, false
	}
	c, ok := rc.byID[chatID]
	if !ok {
		return Chat{}, false
	}

	if !c.upvotedBy(userID) {
		c.Upvoters = append(c.Upvoters, userID)
	}
	return c.snapshot(), true
}

// Get returns the chat with chatID in roomID.
func (s *Store) Get(roomID, chatID string) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.rooms[roomID]
	if !ok {
		return Chat{}, false
	}
	c, ok := rc.byID[chatID]
	if !ok {
		return Chat{}, false
	}
	return c.snapshot(), true
}

// Chats returns roomID's chats in the order they were posted. A positive
// limit keeps only the most recent limit chats.
func (s *Store) Chats(roomID string, limit int) []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.rooms[roomID]
	if !ok {
		return []Chat{}
	}

	chats := rc.order
	if limit > 0 && limit < len(chats) {
		chats = chats[len(chats)-limit:]
	}

	out := make([]Chat, len(chats))
	for i, c := range chats {
		out[i] = c.snapshot()
	}
	return out
}
