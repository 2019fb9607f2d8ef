package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(context.Background(), nil)
	RegisterDefaultHandlers(hub)
	srv := httptest.NewServer(NewUpgrader(nil, hub))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, request string) Message {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(request)))
	return readMessage(t, conn)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func errorText(t *testing.T, msg Message) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	return payload["message"]
}

func TestPingPong(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)

	reply := roundTrip(t, conn, `{"type":"ping","id":"7"}`)
	assert.Equal(t, "pong", reply.Type)
	assert.Equal(t, "7", reply.ID)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestErrorReplies(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv)

	tests := []struct {
		name    string
		request string
		id      string
		want    string
	}{
		{name: "malformed", request: `{not json`, want: "invalid message format"},
		{name: "unknown type", request: `{"type":"launch","id":"a"}`, id: "a", want: `no handler for message type: "launch"`},
		{name: "subscribe without room", request: `{"type":"subscribe","id":"b","data":{}}`, id: "b", want: "room name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := roundTrip(t, conn, tt.request)
			assert.Equal(t, "error", reply.Type)
			assert.Equal(t, tt.id, reply.ID)
			assert.Contains(t, errorText(t, reply), tt.want)
		})
	}
}

func TestCustomHandler(t *testing.T) {
	hub, srv := newTestHub(t)
	hub.RegisterHandler("echo", func(ctx context.Context, c *Client, m *Message) error {
		return c.Reply(m, "echo", json.RawMessage(m.Data))
	})
	hub.RegisterHandler("fail", func(ctx context.Context, c *Client, m *Message) error {
		return errors.New("nope")
	})
	conn := dial(t, srv)

	reply := roundTrip(t, conn, `{"type":"echo","id":"1","data":{"x":1}}`)
	assert.Equal(t, "echo", reply.Type)
	assert.JSONEq(t, `{"x":1}`, string(reply.Data))

	reply = roundTrip(t, conn, `{"type":"fail","id":"2"}`)
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "nope", errorText(t, reply))
}

func TestRoomsAndBroadcast(t *testing.T) {
	hub, srv := newTestHub(t)
	subscriber := dial(t, srv)
	other := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	reply := roundTrip(t, subscriber, `{"type":"subscribe","id":"s","data":{"room":"DataIdentification"}}`)
	assert.Equal(t, "subscribed", reply.Type)
	assert.Equal(t, []string{"DataIdentification"}, hub.Rooms())

	require.NoError(t, hub.BroadcastToRoom("DataIdentification", &Message{
		Type:    "record_stored",
		Payload: map[string]string{"id": "r1"},
	}))
	event := readMessage(t, subscriber)
	assert.Equal(t, "record_stored", event.Type)
	assert.JSONEq(t, `{"id":"r1"}`, string(event.Data))

	require.NoError(t, hub.Broadcast(&Message{Type: "notice"}))
	assert.Equal(t, "notice", readMessage(t, subscriber).Type)
	assert.Equal(t, "notice", readMessage(t, other).Type, "room events skip non members")

	reply = roundTrip(t, subscriber, `{"type":"unsubscribe","data":{"room":"DataIdentification"}}`)
	assert.Equal(t, "unsubscribed", reply.Type)
	assert.Empty(t, hub.Rooms())
}

func TestCountCallbackAndDisconnect(t *testing.T) {
	hub, srv := newTestHub(t)
	var last atomic.Int64
	hub.OnCountChange(func(n int) { last.Store(int64(n)) })

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return last.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), last.Load())
}

func TestShutdownClosesClients(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Shutdown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Equal(t, 0, hub.ClientCount())

	// new connections are refused once the hub is closed
	late := dial(t, srv)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater))
}
