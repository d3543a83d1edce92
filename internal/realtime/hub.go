package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// sendBuffer bounds each subscriber's outbound queue. On overflow the oldest
// queued message is dropped so a slow reader never blocks the dispatcher.
const sendBuffer = 256

// Hub is the process-local pub/sub bus for realtime push. Clients subscribe
// to rooms named "pipeline:{id}" and receive one event message per output
// record. Delivery is best-effort: no persistence, no retry.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	closed bool
}

// Client is one websocket subscriber and its room memberships.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

// RoomForPipeline names the room carrying one pipeline's outputs.
func RoomForPipeline(pipelineID string) string {
	return "pipeline:" + pipelineID
}

// Broadcast queues a message for every subscriber of the room. Full queues
// drop their oldest entry first.
func (h *Hub) Broadcast(room string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for c := range h.rooms[room] {
		select {
		case c.send <- message:
		default:
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- message:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of clients in a room.
func (h *Hub) SubscriberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close drops all clients and makes further broadcasts no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, clients := range h.rooms {
		for c := range clients {
			close(c.send)
		}
	}
	h.rooms = make(map[string]map[*Client]bool)
}

func (h *Hub) subscribe(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

func (h *Hub) unsubscribe(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for room := range c.rooms {
		if clients, ok := h.rooms[room]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// clientMessage is the subscribe/unsubscribe frame clients send.
type clientMessage struct {
	Action     string `json:"action"`
	PipelineID string `json:"pipelineId"`
}

// ServeWS upgrades the request and runs the client's read loop until the
// connection drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[realtime] upgrade error:", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]bool),
	}

	go client.writePump()

	defer func() {
		h.drop(client)
		conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.PipelineID == "" {
			continue
		}
		switch msg.Action {
		case "subscribe":
			h.subscribe(client, RoomForPipeline(msg.PipelineID))
		case "unsubscribe":
			h.unsubscribe(client, RoomForPipeline(msg.PipelineID))
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		w.Close()
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
