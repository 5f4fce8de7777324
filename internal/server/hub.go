// Package server coordinates client registration, inbound frame dispatch, and
// connection cleanup for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/room"
)

// FrameHandler consumes what the hub reads off its connections.
type FrameHandler interface {
	HandleFrame(sender room.Connection, data []byte) error
	Disconnect(conn room.Connection)
}

// Hub manages all WebSocket client connections. Its event loop is the only
// goroutine that hands frames to the FrameHandler, so frames are applied one
// at a time in arrival order.
type Hub struct {
	clients    map[*Client]bool
	inbound    chan inboundFrame
	register   chan *Client
	unregister chan *Client
	handler    FrameHandler
	logger     *zap.Logger
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub that feeds frames to handler. The returned Hub is
// ready to manage WebSocket connections once Run is started.
func NewHub(handler FrameHandler, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		inbound:    make(chan inboundFrame),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		handler:    handler,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a freshly upgraded client to the hub. It reports false if
// the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(client *Client, data []byte) bool {
	select {
	case h.inbound <- inboundFrame{client: client, data: data}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) release(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// evict unregisters a client whose send buffer overflowed. It never blocks
// the caller, which may be inside a broadcast.
func (h *Hub) evict(client *Client) {
	go h.release(client)
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and inbound frames. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case frame := <-h.inbound:
			h.mutex.RLock()
			_, ok := h.clients[frame.client]
			h.mutex.RUnlock()
			if !ok {
				continue
			}
			// Errors are logged by the handler and never end the connection.
			_ = h.handler.HandleFrame(frame.client, frame.data)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	h.logger.Info("client registered", zap.String("addr", client.addr), zap.Int("clients", clientCount))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.handler.Disconnect(client)
	client.close()
	h.logger.Info("client unregistered", zap.String("addr", client.addr), zap.Int("clients", clientCount))
}

// shutdownClients closes every active client connection.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mutex.Unlock()

	for _, client := range clients {
		h.handler.Disconnect(client)
		client.close()
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Warn("error closing client connection", zap.String("addr", client.addr), zap.Error(err))
			}
		}
	}

	h.logger.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines
// to complete. It returns context.DeadlineExceeded if client goroutines are
// still running when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
