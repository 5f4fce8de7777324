package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

const testOriginURL = "http://localhost:8081"

// startTestServer runs a Server behind httptest with its hub started. Both
// are torn down when the test ends.
func startTestServer(t *testing.T, customize func(cfg *Config)) (*Server, *httptest.Server) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOriginURL}
	if customize != nil {
		customize(cfg)
	}

	srv := New(cfg, zap.NewNop())
	srv.StartHub()
	t.Cleanup(func() {
		_ = srv.ShutdownHub(2 * time.Second)
	})

	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func buildWebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

func newOriginHeader(origin string) http.Header {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return header
}

// dialWebSocket connects to the test server with an allowed origin.
func dialWebSocket(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(buildWebSocketURL(serverURL), newOriginHeader(testOriginURL))
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, msg protocol.Message) {
	t.Helper()

	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readOutgoing(t *testing.T, conn *websocket.Conn) protocol.Outgoing {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	msg, err := protocol.DecodeOutgoing(data)
	require.NoError(t, err)
	return msg
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received %s", data)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// joinRoom sends JOIN_ROOM and waits until the hub has applied it.
func joinRoom(t *testing.T, srv *Server, conn *websocket.Conn, name, userID, roomID string) {
	t.Helper()

	sendEnvelope(t, conn, protocol.JoinRoom{Name: name, UserID: userID, RoomID: roomID})
	require.Eventually(t, func() bool {
		_, ok := srv.rooms.Lookup(roomID, userID)
		return ok
	}, 2*time.Second, 10*time.Millisecond, "%s never joined %s", userID, roomID)
}
