package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/protocol"
	"github.com/Tyrowin/roomchat/internal/room"
)

type recordingConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingConn) IsOpen() bool { return true }

func (c *recordingConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *recordingConn) messages(t *testing.T) []protocol.Outgoing {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]protocol.Outgoing, 0, len(c.frames))
	for _, f := range c.frames {
		msg, err := protocol.DecodeOutgoing(f)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

type fixture struct {
	rooms *room.Registry
	chats *chat.Store
	d     *Dispatcher
	alice *recordingConn
	bob   *recordingConn
}

func newFixture(t *testing.T) *fixture {
	logger := zaptest.NewLogger(t)
	f := &fixture{
		rooms: room.NewRegistry(logger),
		chats: chat.NewStore(),
		alice: &recordingConn{},
		bob:   &recordingConn{},
	}
	f.d = New(f.rooms, f.chats, logger)

	require.NoError(t, f.d.Handle(f.alice, protocol.JoinRoom{Name: "Alice", UserID: "A", RoomID: "R1"}))
	require.NoError(t, f.d.Handle(f.bob, protocol.JoinRoom{Name: "Bob", UserID: "B", RoomID: "R1"}))
	return f
}

func TestJoinRegistersSenderWithoutBroadcast(t *testing.T) {
	f := newFixture(t)

	u, ok := f.rooms.Lookup("R1", "A")
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Name)
	assert.Same(t, f.alice, u.Conn)

	assert.Empty(t, f.alice.messages(t))
	assert.Empty(t, f.bob.messages(t))
}

func TestChatAndUpvoteScenario(t *testing.T) {
	f := newFixture(t)

	err := f.d.Handle(f.alice, protocol.SendMessage{UserID: "A", RoomID: "R1", Message: "hi"})
	require.NoError(t, err)

	assert.Empty(t, f.alice.messages(t), "sender gets no echo")
	bobGot := f.bob.messages(t)
	require.Len(t, bobGot, 1)
	added, ok := bobGot[0].(protocol.AddChat)
	require.True(t, ok)
	assert.NotEmpty(t, added.ChatID)
	assert.Equal(t, protocol.AddChat{ChatID: added.ChatID, RoomID: "R1", Message: "hi", Name: "Alice", Upvotes: 0}, added)

	err = f.d.Handle(f.bob, protocol.UpvoteMessage{UserID: "B", RoomID: "R1", ChatID: added.ChatID})
	require.NoError(t, err)

	aliceGot := f.alice.messages(t)
	require.Len(t, aliceGot, 1)
	assert.Equal(t, protocol.UpdateChat{ChatID: added.ChatID, RoomID: "R1", Upvotes: 1}, aliceGot[0])
	assert.Len(t, f.bob.messages(t), 1, "upvoter gets no echo")

	err = f.d.Handle(f.bob, protocol.UpvoteMessage{UserID: "B", RoomID: "R1", ChatID: added.ChatID})
	require.NoError(t, err)

	aliceGot = f.alice.messages(t)
	require.Len(t, aliceGot, 2)
	assert.Equal(t, protocol.UpdateChat{ChatID: added.ChatID, RoomID: "R1", Upvotes: 1}, aliceGot[1], "duplicate upvote keeps count")
}

func TestSendMessageFromNonMember(t *testing.T) {
	f := newFixture(t)
	stranger := &recordingConn{}

	err := f.d.Handle(stranger, protocol.SendMessage{UserID: "Z", RoomID: "R1", Message: "hi"})
	assert.ErrorIs(t, err, ErrUserNotInRoom)

	assert.Empty(t, f.chats.Chats("R1", 0), "no chat stored")
	assert.Empty(t, f.alice.messages(t))
	assert.Empty(t, f.bob.messages(t))
}

func TestSendMessageToRoomNeverJoined(t *testing.T) {
	f := newFixture(t)

	err := f.d.Handle(f.alice, protocol.SendMessage{UserID: "A", RoomID: "R2", Message: "hi"})
	assert.ErrorIs(t, err, ErrUserNotInRoom)
	assert.Empty(t, f.chats.Chats("R2", 0))
}

func TestUpvoteFailures(t *testing.T) {
	f := newFixture(t)
	c := f.chats.AddChat("A", "Alice", "R1", "hi")

	err := f.d.Handle(&recordingConn{}, protocol.UpvoteMessage{UserID: "Z", RoomID: "R1", ChatID: c.ID})
	assert.ErrorIs(t, err, ErrUserNotInRoom)

	err = f.d.Handle(f.bob, protocol.UpvoteMessage{UserID: "B", RoomID: "R1", ChatID: "nope"})
	assert.ErrorIs(t, err, ErrChatNotFound)

	got, ok := f.chats.Get("R1", c.ID)
	require.True(t, ok)
	assert.Zero(t, got.Upvotes())
	assert.Empty(t, f.alice.messages(t))
}

func TestHandleFrame(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rooms := room.NewRegistry(nil)
	d := New(rooms, chat.NewStore(), zap.New(core))
	conn := &recordingConn{}

	err := d.HandleFrame(conn, []byte(`{"type":"NOPE","payload":{}}`))
	assert.ErrorIs(t, err, protocol.ErrUnknownType)

	err = d.HandleFrame(conn, []byte(`{not json`))
	assert.ErrorIs(t, err, protocol.ErrMalformedEnvelope)
	assert.Equal(t, 2, logs.FilterMessage("dropping invalid frame").Len())

	err = d.HandleFrame(conn, []byte(`{"type":"JOIN_ROOM","payload":{"name":"Alice","userId":"A","roomId":"R1"}}`))
	require.NoError(t, err)
	_, ok := rooms.Lookup("R1", "A")
	assert.True(t, ok, "connection still usable after bad frames")
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.d.Handle(f.alice, protocol.JoinRoom{Name: "Alice", UserID: "A", RoomID: "R2"}))

	f.d.Disconnect(f.alice)

	_, ok := f.rooms.Lookup("R1", "A")
	assert.False(t, ok)
	_, ok = f.rooms.Lookup("R2", "A")
	assert.False(t, ok)

	err := f.d.Handle(f.bob, protocol.SendMessage{UserID: "B", RoomID: "R1", Message: "anyone?"})
	require.NoError(t, err)
	assert.Empty(t, f.alice.messages(t))
}

type stubRegistry struct {
	Registry
	user      room.User
	found     bool
	broadcast []protocol.Outgoing
	excluded  []string
}

func (s *stubRegistry) Lookup(string, string) (room.User, bool) { return s.user, s.found }

func (s *stubRegistry) Broadcast(_, exclude string, msg protocol.Outgoing) (int, error) {
	s.broadcast = append(s.broadcast, msg)
	s.excluded = append(s.excluded, exclude)
	return 1, nil
}

type stubStore struct {
	added   chat.Chat
	upvoted chat.Chat
	found   bool
}

func (s *stubStore) AddChat(string, string, string, string) chat.Chat { return s.added }

func (s *stubStore) Upvote(string, string, string) (chat.Chat, bool) { return s.upvoted, s.found }

func TestUpvoteBroadcastsStoreCount(t *testing.T) {
	reg := &stubRegistry{user: room.User{ID: "B", Name: "Bob"}, found: true}
	store := &stubStore{upvoted: chat.Chat{ID: "c-7", RoomID: "R1", Upvoters: []string{"A", "B", "C"}}, found: true}
	d := New(reg, store, nil)

	require.NoError(t, d.Handle(nil, protocol.UpvoteMessage{UserID: "B", RoomID: "R1", ChatID: "c-7"}))

	require.Len(t, reg.broadcast, 1)
	assert.Equal(t, protocol.UpdateChat{ChatID: "c-7", RoomID: "R1", Upvotes: 3}, reg.broadcast[0])
	assert.Equal(t, []string{"B"}, reg.excluded)
}

func TestSendMessageUsesRegisteredName(t *testing.T) {
	reg := &stubRegistry{user: room.User{ID: "A", Name: "Alice"}, found: true}
	store := &stubStore{added: chat.Chat{ID: "c-1"}}
	d := New(reg, store, nil)

	require.NoError(t, d.Handle(nil, protocol.SendMessage{UserID: "A", RoomID: "R1", Message: "yo"}))

	require.Len(t, reg.broadcast, 1)
	assert.Equal(t, protocol.AddChat{ChatID: "c-1", RoomID: "R1", Message: "yo", Name: "Alice"}, reg.broadcast[0])
	assert.Equal(t, []string{"A"}, reg.excluded)
}
