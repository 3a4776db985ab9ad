package websocket

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same open policy as the REST CORS config
	},
}

// StatusFunc reports the current cache status sent to new clients
type StatusFunc func() interface{}

// Handler upgrades requests and subscribes them to hub pushes
type Handler struct {
	hub    *Hub
	status StatusFunc
}

// NewHandler creates a websocket endpoint on hub. status may be nil.
func NewHandler(hub *Hub, status StatusFunc) *Handler {
	return &Handler{hub: hub, status: status}
}

// ServeHTTP handles a websocket connection for snapshot notifications
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := newClient(uuid.NewString(), conn, h.hub, h.status)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	// greet with the current status so clients need no extra request
	client.sendStatus()

	go client.writePump()
	go client.readPump()
}
