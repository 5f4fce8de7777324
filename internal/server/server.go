// Package server wires the room registry, chat store and dispatcher behind a
// Hub and exposes them over HTTP.
package server

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/dispatch"
	"github.com/Tyrowin/roomchat/internal/room"
)

// Server owns every piece of in-memory state for one chat process.
type Server struct {
	cfg      Config
	rooms    *room.Registry
	chats    *chat.Store
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New builds a Server from cfg. A nil cfg uses the defaults.
func New(cfg *Config, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := sanitizeConfig(*cfg)

	rooms := room.NewRegistry(logger.Named("room"))
	chats := chat.NewStore(chat.WithLogger(logger.Named("chat")))
	d := dispatch.New(rooms, chats, logger.Named("dispatch"))
	origins := newOriginPolicy(c.AllowedOrigins, logger.Named("origin"))

	return &Server{
		cfg:   c,
		rooms: rooms,
		chats: chats,
		hub:   NewHub(d, logger.Named("hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		logger: logger,
	}
}

// Config returns the sanitized configuration the server runs with.
func (s *Server) Config() Config {
	return s.cfg
}

// Hub returns the server's hub for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// StartHub starts the hub's event loop in a separate goroutine. It must be
// called before the HTTP server accepts connections.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.logger.Info("hub started and ready to manage websocket connections")
}

// ShutdownHub stops the hub and closes every client connection.
func (s *Server) ShutdownHub(timeout time.Duration) error {
	return s.hub.Shutdown(timeout)
}
