// Package websocket serves the interactive validation stream: clients send
// JSON messages over one connection and receive replies and record events.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is the envelope of every frame in both directions. Replies carry
// the ID of the request they answer.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Payload interface{}     `json:"-"`
}

// MessageHandler handles one incoming message type
type MessageHandler func(ctx context.Context, client *Client, message *Message) error

// marshalMessage encodes Payload into Data and the envelope into JSON
func marshalMessage(message *Message) ([]byte, error) {
	if message.Payload != nil {
		data, err := json.Marshal(message.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		message.Data = data
	}
	return json.Marshal(message)
}

// PingHandler answers "ping" with "pong"
func PingHandler(ctx context.Context, client *Client, message *Message) error {
	return client.Reply(message, "pong", nil)
}

// SubscribeHandler joins the room named by {"room": ...}
func SubscribeHandler(ctx context.Context, client *Client, message *Message) error {
	room, err := roomOf(message)
	if err != nil {
		return err
	}
	client.hub.JoinRoom(client, room)
	return client.Reply(message, "subscribed", map[string]string{"room": room})
}

// UnsubscribeHandler leaves the room named by {"room": ...}
func UnsubscribeHandler(ctx context.Context, client *Client, message *Message) error {
	room, err := roomOf(message)
	if err != nil {
		return err
	}
	client.hub.LeaveRoom(client, room)
	return client.Reply(message, "unsubscribed", map[string]string{"room": room})
}

func roomOf(message *Message) (string, error) {
	var req struct {
		Room string `json:"room"`
	}
	if len(message.Data) > 0 {
		if err := json.Unmarshal(message.Data, &req); err != nil {
			return "", fmt.Errorf("invalid %s request: %w", message.Type, err)
		}
	}
	if req.Room == "" {
		return "", fmt.Errorf("room name is required")
	}
	return req.Room, nil
}

// RegisterDefaultHandlers registers the built-in message handlers
func RegisterDefaultHandlers(hub *Hub) {
	hub.RegisterHandler("ping", PingHandler)
	hub.RegisterHandler("subscribe", SubscribeHandler)
	hub.RegisterHandler("unsubscribe", UnsubscribeHandler)
}
