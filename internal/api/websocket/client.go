package websocket

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBufferSize = 16
)

// clientMessage is what a client may send: {"type":"heartbeat"} or {"type":"status"}
type clientMessage struct {
	Type string `json:"type"`
}

// Client is one websocket subscriber
type Client struct {
	ID     string
	conn   *websocket.Conn
	send   chan Message
	quit   chan struct{} // closed by the hub on unregister
	hub    *Hub
	status StatusFunc
}

func newClient(id string, conn *websocket.Conn, hub *Hub, status StatusFunc) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		quit:   make(chan struct{}),
		hub:    hub,
		status: status,
	}
}

// TrySend queues msg without blocking, false when the buffer is full
func (c *Client) TrySend(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump drains client frames so pongs and close frames are processed
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("client %s unexpected close: %v", c.ID, err)
			}
			return
		}
		c.handleClientMessage(msg)
	}
}

// writePump owns all writes to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("client %s write error: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleClientMessage(msg clientMessage) {
	switch msg.Type {
	case MessageTypeHeartbeat:
		c.TrySend(Message{Type: MessageTypeHeartbeat, Timestamp: time.Now()})
	case MessageTypeStatus:
		c.sendStatus()
	default:
		c.TrySend(Message{
			Type:      MessageTypeError,
			Payload:   map[string]string{"code": "unknown_message_type", "message": "unknown message type: " + msg.Type},
			Timestamp: time.Now(),
		})
	}
}

func (c *Client) sendStatus() {
	if c.status == nil {
		return
	}
	c.TrySend(Message{Type: MessageTypeStatus, Payload: c.status(), Timestamp: time.Now()})
}
