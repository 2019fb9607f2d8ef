package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	webcontext "github.com/geomd/metaschema/internal/web/context"
)

// Config holds WebSocket configuration
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin defaults to gorilla's same-origin check when nil
	CheckOrigin func(r *http.Request) bool

	EnableCompression bool
}

// DefaultConfig returns default WebSocket configuration
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

// Upgrader upgrades HTTP requests to stream clients of a hub
type Upgrader struct {
	upgrader *websocket.Upgrader
	hub      *Hub
}

// NewUpgrader creates a new Upgrader
func NewUpgrader(config *Config, hub *Hub) *Upgrader {
	if config == nil {
		config = DefaultConfig()
	}

	return &Upgrader{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			CheckOrigin:       config.CheckOrigin,
			EnableCompression: config.EnableCompression,
		},
		hub: hub,
	}
}

// ServeHTTP upgrades the request and starts the client's pumps
func (u *Upgrader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		u.hub.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.New().String(), conn, u.hub)
	client.Subject = webcontext.GetSubject(r.Context())

	if !u.hub.register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	u.hub.logger.Info("stream connection established",
		zap.String("client", client.ID),
		zap.String("request_id", webcontext.GetRequestID(r.Context())),
	)
}
