package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func dial(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandler_GreetsAndBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	status := func() interface{} { return map[string]interface{}{"cached": false} }
	conn := dial(t, NewHandler(hub, status))

	greeting := readMessage(t, conn)
	assert.Equal(t, MessageTypeStatus, greeting.Type)
	assert.Equal(t, false, greeting.Payload["cached"])
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastSnapshotReloaded(map[string]interface{}{"cached": true, "offensive_types": 10})

	pushed := readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshotReloaded, pushed.Type)
	assert.Equal(t, true, pushed.Payload["cached"])
	assert.Equal(t, float64(10), pushed.Payload["offensive_types"])
}

func TestHandler_ClientMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	conn := dial(t, NewHandler(hub, nil))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "heartbeat"}))
	assert.Equal(t, MessageTypeHeartbeat, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	reply := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, reply.Type)
	assert.Equal(t, "unknown_message_type", reply.Payload["code"])
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	status := func() interface{} { return map[string]interface{}{} }
	conn := dial(t, NewHandler(hub, status))
	readMessage(t, conn)

	cancel()
	<-stopped

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	// no pumps run, so nothing drains the buffers
	slow := newClient("slow", nil, hub, nil)
	idle := newClient("idle", nil, hub, nil)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(idle))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, slow.TrySend(Message{Type: MessageTypeHeartbeat}))
	}

	hub.BroadcastSnapshotReloaded(map[string]interface{}{"cached": true})

	select {
	case <-slow.quit:
	case <-time.After(2 * time.Second):
		t.Fatal("slow client was not disconnected")
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	select {
	case msg := <-idle.send:
		assert.Equal(t, MessageTypeSnapshotReloaded, msg.Type)
	default:
		t.Fatal("idle client missed the broadcast")
	}

	metrics := hub.Metrics()
	assert.Equal(t, 1, metrics["active_clients"])
	assert.Equal(t, int64(2), metrics["total_connections"])
	assert.Equal(t, int64(1), metrics["total_messages"])
}
