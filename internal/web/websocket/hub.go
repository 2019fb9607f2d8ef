package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks connected clients, their rooms and the message handlers
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool

	handlersMu sync.RWMutex
	handlers   map[string]MessageHandler

	// onCountChange observes the number of connected clients
	onCountChange func(int)

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewHub creates a hub whose clients are cancelled with ctx
func NewHub(ctx context.Context, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		handlers: make(map[string]MessageHandler),
		ctx:      hubCtx,
		cancel:   cancel,
		logger:   logger,
	}
}

// RegisterHandler registers a handler for a message type
func (h *Hub) RegisterHandler(messageType string, handler MessageHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[messageType] = handler
}

// OnCountChange sets a callback receiving the client count after each change
func (h *Hub) OnCountChange(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCountChange = fn
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n, notify := len(h.clients), h.onCountChange
	h.mu.Unlock()

	h.logger.Debug("stream client registered", zap.String("client", c.ID), zap.Int("total", n))
	if notify != nil {
		notify(n)
	}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	n, notify := len(h.clients), h.onCountChange
	h.mu.Unlock()

	h.logger.Debug("stream client unregistered", zap.String("client", c.ID), zap.Int("total", n))
	if notify != nil {
		notify(n)
	}
}

// JoinRoom adds the client to a room
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// LeaveRoom removes the client from a room
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Rooms returns the names of the non-empty rooms, sorted
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.rooms))
	for name := range h.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends message to every client
func (h *Hub) Broadcast(message *Message) error {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, message)
}

// BroadcastToRoom sends message to the members of room
func (h *Hub) BroadcastToRoom(room string, message *Message) error {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, message)
}

func (h *Hub) deliver(targets []*Client, message *Message) error {
	if len(targets) == 0 {
		return nil
	}
	data, err := marshalMessage(message)
	if err != nil {
		return err
	}
	for _, c := range targets {
		if err := c.sendRaw(data); err != nil {
			h.logger.Debug("dropping broadcast", zap.String("client", c.ID), zap.Error(err))
		}
	}
	return nil
}

// HandleMessage decodes a frame and routes it to its handler
func (h *Hub) HandleMessage(ctx context.Context, c *Client, data []byte) (*Message, error) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	h.handlersMu.RLock()
	handler, ok := h.handlers[message.Type]
	h.handlersMu.RUnlock()
	if !ok {
		return &message, fmt.Errorf("no handler for message type: %q", message.Type)
	}
	return &message, handler(ctx, c, &message)
}

// Shutdown closes every client and refuses new ones
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.cancel()
	for _, c := range clients {
		c.Close()
	}
}
