package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 << 20
)

var (
	errClientClosed = errors.New("client closed")
	errSendFull     = errors.New("send channel full")
)

// Client is one stream connection
type Client struct {
	ID string
	// Subject is the token subject when the upgrade request was authenticated
	Subject string

	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	connectedAt time.Time
}

func newClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	return &Client{
		ID:          id,
		conn:        conn,
		hub:         hub,
		send:        make(chan []byte, 64),
		ctx:         ctx,
		cancel:      cancel,
		connectedAt: time.Now(),
	}
}

// readPump handles incoming frames one at a time, so replies keep request order
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("stream read failed", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}

		message, err := c.hub.HandleMessage(c.ctx, c, data)
		if err != nil {
			c.SendError(message, err)
		}
	}
}

// writePump is the only writer of the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.cancel()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// Send queues message for delivery without blocking
func (c *Client) Send(message *Message) error {
	data, err := marshalMessage(message)
	if err != nil {
		return err
	}
	return c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) error {
	if c.ctx.Err() != nil {
		return errClientClosed
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return errClientClosed
	default:
		return errSendFull
	}
}

// Reply answers request with a message of the given type carrying payload
func (c *Client) Reply(request *Message, messageType string, payload interface{}) error {
	reply := &Message{Type: messageType, Payload: payload}
	if request != nil {
		reply.ID = request.ID
	}
	return c.Send(reply)
}

// SendError reports a failed request to the client
func (c *Client) SendError(request *Message, err error) {
	_ = c.Reply(request, "error", map[string]string{"message": err.Error()})
}

// ConnectionDuration returns how long the client has been connected
func (c *Client) ConnectionDuration() time.Duration {
	return time.Since(c.connectedAt)
}

// Close unregisters the client and stops its pumps
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.hub.unregister(c)
	})
}
