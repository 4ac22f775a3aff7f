package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ai-fitness-planner/internal/actions"
	"ai-fitness-planner/internal/logging"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Message is the structure of every websocket frame.
type Message struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
	Source string `json:"source"`
}

// Hub manages active websocket connections and fans side-channel updates
// out to all of them.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{conns: map[*websocket.Conn]struct{}{}, logger: logger}
}

// Add registers a new connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	h.logger.Debug("websocket connection added", "connections", len(h.conns))
}

// Remove closes and forgets a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
		h.logger.Debug("websocket connection removed", "connections", len(h.conns))
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends msg to every connection. Connections that fail to
// receive it are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", logging.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := h.write(conn, data); err != nil {
			h.logger.Debug("dropping websocket connection", logging.Error(err))
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// Send writes msg to a single connection.
func (h *Hub) Send(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.write(conn, data)
}

func (h *Hub) write(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Run broadcasts updates until ctx is done or the channel closes.
func (h *Hub) Run(ctx context.Context, updates <-chan actions.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(Message{Action: string(u.Event.Type), Data: u, Source: "actions"})
		}
	}
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The API is unauthenticated; CORS already allows any origin.
		return true
	},
}
