// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, room history, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// WebSocketHandler upgrades GET requests to WebSocket connections and hands
// the resulting client to the hub, which launches its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("addr", r.RemoteAddr), zap.Error(err))
		return
	}
	s.logger.Info("connection accepted", zap.String("addr", r.RemoteAddr))

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if !s.hub.Register(client) {
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Room chat server is running!")
}

type chatView struct {
	ChatID    string    `json:"chatId"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Upvotes   int       `json:"upvotes"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatsResponse struct {
	RoomID string     `json:"roomId"`
	Chats  []chatView `json:"chats"`
}

// ChatsHandler returns a room's chat history as JSON, oldest first. The
// optional limit query parameter keeps only the most recent chats.
func (s *Server) ChatsHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	chats := s.chats.Chats(roomID, limit)
	resp := chatsResponse{RoomID: roomID, Chats: make([]chatView, 0, len(chats))}
	for _, c := range chats {
		resp.Chats = append(resp.Chats, chatView{
			ChatID:    c.ID,
			UserID:    c.AuthorID,
			Name:      c.AuthorName,
			Message:   c.Text,
			Upvotes:   c.Upvotes(),
			CreatedAt: c.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("error writing chats response", zap.String("room", roomID), zap.Error(err))
	}
}

// TestPageHandler serves an HTML page for trying the room protocol from a
// browser: join a room, post chats, and upvote what others post.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		zap.L().Warn("error writing html response", zap.Error(err))
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Room Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #chats {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 160px; padding: 5px; margin-right: 10px; }
        #messageInput { width: 300px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .chat { margin: 5px 0; padding: 3px; }
        .chat .votes { margin-left: 10px; color: #555; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Room Chat Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="nameInput" placeholder="Display name">
        <input type="text" id="userInput" placeholder="User id">
        <input type="text" id="roomInput" placeholder="Room id" value="lobby">
        <button id="joinButton" onclick="join()">Join</button>
    </div>
    <div style="margin-top: 10px">
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="chats"></div>

    <script>
        let ws = null;
        let userId = '';
        let roomId = '';
        const chatsDiv = document.getElementById('chats');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const statusDiv = document.getElementById('status');

        function send(type, payload) {
            ws.send(JSON.stringify({ type: type, payload: payload }));
        }

        function renderChat(chatId, name, message, upvotes) {
            const row = document.createElement('div');
            row.className = 'chat';
            if (chatId) {
                row.id = 'chat-' + chatId;
            }

            const who = document.createElement('strong');
            who.textContent = name + ': ';
            const text = document.createElement('span');
            text.textContent = message;
            const votes = document.createElement('span');
            votes.className = 'votes';
            votes.textContent = upvotes + ' upvotes';
            row.append(who, text, votes);

            if (chatId) {
                const up = document.createElement('button');
                up.textContent = '+1';
                up.onclick = function() {
                    send('UPVOTE_MESSAGE', { userId: userId, roomId: roomId, chatId: chatId });
                };
                row.append(up);
            }

            chatsDiv.appendChild(row);
            chatsDiv.scrollTop = chatsDiv.scrollHeight;
        }

        function updateVotes(chatId, upvotes) {
            const row = document.getElementById('chat-' + chatId);
            if (row) {
                row.querySelector('.votes').textContent = upvotes + ' upvotes';
            }
        }

        function setConnected(connected) {
            statusDiv.textContent = connected ? 'Joined ' + roomId + ' as ' + userId : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
        }

        function join() {
            const name = document.getElementById('nameInput').value.trim();
            userId = document.getElementById('userInput').value.trim();
            roomId = document.getElementById('roomInput').value.trim();
            if (!name || !userId || !roomId) {
                return;
            }
            if (ws) {
                ws.close();
            }

            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');

            ws.onopen = function() {
                send('JOIN_ROOM', { name: name, userId: userId, roomId: roomId });
                setConnected(true);
            };

            ws.onmessage = function(event) {
                const msg = JSON.parse(event.data);
                if (msg.type === 'ADD_CHAT') {
                    renderChat(msg.payload.chatId, msg.payload.name, msg.payload.message, msg.payload.upvotes);
                } else if (msg.type === 'UPDATE_CHAT') {
                    updateVotes(msg.payload.chatId, msg.payload.upvotes);
                }
            };

            ws.onclose = function() {
                setConnected(false);
                ws = null;
            };
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                send('SEND_MESSAGE', { userId: userId, roomId: roomId, message: message });
                renderChat('', 'You', message, 0);
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
